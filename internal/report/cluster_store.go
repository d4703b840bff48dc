package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dupmap/internal/catalog"
	"dupmap/internal/dedup"
	"dupmap/internal/logging"
)

const clusterSchemaVersion = 1

const clusterSchema = `
DROP TABLE IF EXISTS metadata;
DROP TABLE IF EXISTS file_instances;
DROP TABLE IF EXISTS files;

CREATE TABLE metadata (version INTEGER NOT NULL);

CREATE TABLE files (
    fileid INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    size INTEGER NOT NULL,
    hash TEXT NOT NULL
);

CREATE TABLE file_instances (
    file_source INTEGER NOT NULL REFERENCES files(fileid) ON DELETE CASCADE,
    source TEXT NOT NULL,
    path TEXT NOT NULL
);

CREATE INDEX idx_file_instances_file ON file_instances(file_source);
`

// StoredCluster is a duplicate cluster read back from a ClusterStore.
type StoredCluster struct {
	ID        int64
	Name      string
	Size      int64
	Hash      string
	Instances []catalog.FileRecord
}

// ClusterStore is a report database of catalogue-internal duplicate clusters.
type ClusterStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// CreateClusterStore creates a cluster report at path, replacing existing tables.
func CreateClusterStore(ctx context.Context, path string, busy time.Duration, logger *slog.Logger) (*ClusterStore, error) {
	db, err := openFresh(ctx, path, busy, clusterSchema)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO metadata (version) VALUES (?)", clusterSchemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("record cluster schema version: %w", err)
	}
	return &ClusterStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "report")}, nil
}

// OpenClusterStore opens an existing cluster report.
func OpenClusterStore(ctx context.Context, path string, busy time.Duration, logger *slog.Logger) (*ClusterStore, error) {
	db, err := openExisting(ctx, path, busy)
	if err != nil {
		return nil, err
	}
	if err := requireTables(ctx, db, path, "metadata", "files", "file_instances"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ClusterStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "report")}, nil
}

// Close closes the database.
func (s *ClusterStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the report file location.
func (s *ClusterStore) Path() string {
	return s.path
}

func validateCluster(set dedup.DuplicateSet) error {
	if len(set.Members) < 2 {
		return fmt.Errorf("%w: %s has %d members", ErrInvalidCluster, set.Name, len(set.Members))
	}
	for _, member := range set.Members {
		if member.Name != set.Name || member.Size != set.Size || member.Hash != set.Hash {
			return fmt.Errorf("%w: %s (%d bytes, %q) does not match cluster %s (%d bytes, %q)",
				ErrInvalidCluster, member.RelativePath(), member.Size, member.Hash, set.Name, set.Size, set.Hash)
		}
	}
	return nil
}

// AddCluster records one duplicate set. Every member must share the set's
// name, size, and hash.
func (s *ClusterStore) AddCluster(ctx context.Context, set dedup.DuplicateSet) (int64, error) {
	if err := validateCluster(set); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add cluster: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "INSERT INTO files (name, size, hash) VALUES (?, ?, ?)", set.Name, set.Size, set.Hash)
	if err != nil {
		return 0, fmt.Errorf("insert cluster: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cluster id: %w", err)
	}
	for _, member := range set.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO file_instances (file_source, source, path) VALUES (?, ?, ?)",
			id, member.Source, member.Path,
		); err != nil {
			return 0, fmt.Errorf("insert cluster instance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cluster: %w", err)
	}
	return id, nil
}

// Clusters returns every stored cluster ordered by insertion.
func (s *ClusterStore) Clusters(ctx context.Context) ([]StoredCluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.fileid, f.name, f.size, f.hash, i.source, i.path
		FROM file_instances i
		JOIN files f ON f.fileid = i.file_source
		ORDER BY f.fileid, i.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	var out []StoredCluster
	for rows.Next() {
		var (
			c              StoredCluster
			source, parent string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Size, &c.Hash, &source, &parent); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].ID != c.ID {
			out = append(out, c)
		}
		last := &out[len(out)-1]
		last.Instances = append(last.Instances, catalog.FileRecord{
			Source: source,
			Path:   parent,
			Name:   c.Name,
			Size:   c.Size,
			Hash:   c.Hash,
		})
	}
	return out, rows.Err()
}

// RemoveInstance deletes one file instance from its cluster. A cluster left
// with fewer than two instances is no longer a duplicate and is removed
// entirely. It reports whether an instance was found.
func (s *ClusterStore) RemoveInstance(ctx context.Context, source, path, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin remove instance: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var fileID int64
	err = tx.QueryRowContext(ctx, `
		SELECT i.file_source FROM file_instances i
		JOIN files f ON f.fileid = i.file_source
		WHERE i.source = ? AND i.path = ? AND f.name = ?
		LIMIT 1`, source, path, name).Scan(&fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find instance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM file_instances WHERE file_source = ? AND source = ? AND path = ?",
		fileID, source, path,
	); err != nil {
		return false, fmt.Errorf("delete instance: %w", err)
	}
	var remaining int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM file_instances WHERE file_source = ?", fileID).Scan(&remaining); err != nil {
		return false, fmt.Errorf("count instances: %w", err)
	}
	if remaining < 2 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE fileid = ?", fileID); err != nil {
			return false, fmt.Errorf("delete cluster: %w", err)
		}
		s.logger.Debug("cluster dissolved", logging.Int64("cluster_id", fileID))
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit remove instance: %w", err)
	}
	return true, nil
}
