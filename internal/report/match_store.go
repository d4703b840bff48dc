package report

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"dupmap/internal/logging"
)

const matchSchema = `
DROP TABLE IF EXISTS mapped_files;
DROP TABLE IF EXISTS match_files;

CREATE TABLE match_files (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    size INTEGER NOT NULL
);

CREATE TABLE mapped_files (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    match_id INTEGER NOT NULL REFERENCES match_files(id) ON DELETE CASCADE
);

CREATE INDEX idx_match_files_path ON match_files(path, name);
CREATE INDEX idx_mapped_files_match ON mapped_files(match_id);
`

// pruneBatchSize bounds how many local files one delete transaction removes.
const pruneBatchSize = 100

// Record pairs a local file with one catalogued copy of it.
type Record struct {
	Filename   string `json:"filename"`
	LocalFile  string `json:"local_file"`
	MappedFile string `json:"mapped_file"`
}

// LocalFile identifies a probe file recorded in a match report.
type LocalFile struct {
	Dir  string
	Name string
	Size int64
}

// Path returns the full path of the local file.
func (l LocalFile) Path() string {
	return filepath.Join(l.Dir, l.Name)
}

// MatchStore is a match report database.
type MatchStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// CreateMatchStore creates a match report at path, replacing existing tables.
func CreateMatchStore(ctx context.Context, path string, busy time.Duration, logger *slog.Logger) (*MatchStore, error) {
	db, err := openFresh(ctx, path, busy, matchSchema)
	if err != nil {
		return nil, err
	}
	return &MatchStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "report")}, nil
}

// OpenMatchStore opens an existing match report.
func OpenMatchStore(ctx context.Context, path string, busy time.Duration, logger *slog.Logger) (*MatchStore, error) {
	db, err := openExisting(ctx, path, busy)
	if err != nil {
		return nil, err
	}
	if err := requireTables(ctx, db, path, "match_files", "mapped_files"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &MatchStore{db: db, path: path, logger: logging.NewComponentLogger(logger, "report")}, nil
}

// Close closes the database.
func (s *MatchStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the report file location.
func (s *MatchStore) Path() string {
	return s.path
}

// AddDuplicates records local and the full paths of its catalogued copies in
// one transaction.
func (s *MatchStore) AddDuplicates(ctx context.Context, local LocalFile, mapped []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add duplicates: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO match_files (path, name, size) VALUES (?, ?, ?)",
		local.Dir, local.Name, local.Size,
	)
	if err != nil {
		return fmt.Errorf("insert local file: %w", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("local file id: %w", err)
	}
	for _, full := range mapped {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO mapped_files (path, name, match_id) VALUES (?, ?, ?)",
			filepath.Dir(full), filepath.Base(full), matchID,
		); err != nil {
			return fmt.Errorf("insert mapped file: %w", err)
		}
	}
	return tx.Commit()
}

// Duplicates yields every (local, mapped) pair ordered by local directory then
// file name.
func (s *MatchStore) Duplicates(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT mapped.name, local.path, mapped.path
			FROM mapped_files mapped
			JOIN match_files local ON mapped.match_id = local.id
			ORDER BY local.path ASC, mapped.name ASC, mapped.path ASC`)
		if err != nil {
			yield(Record{}, fmt.Errorf("query duplicates: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var name, localDir, mappedDir string
			if err := rows.Scan(&name, &localDir, &mappedDir); err != nil {
				yield(Record{}, fmt.Errorf("scan duplicate: %w", err))
				return
			}
			record := Record{
				Filename:   name,
				LocalFile:  filepath.Join(localDir, name),
				MappedFile: filepath.Join(mappedDir, name),
			}
			if !yield(record, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Record{}, fmt.Errorf("iterate duplicates: %w", err))
		}
	}
}

// LocalFiles lists the distinct local files recorded, ordered by path.
func (s *MatchStore) LocalFiles(ctx context.Context) ([]LocalFile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT path, name, size FROM match_files ORDER BY path, name")
	if err != nil {
		return nil, fmt.Errorf("query local files: %w", err)
	}
	defer rows.Close()
	var out []LocalFile
	for rows.Next() {
		var lf LocalFile
		if err := rows.Scan(&lf.Dir, &lf.Name, &lf.Size); err != nil {
			return nil, fmt.Errorf("scan local file: %w", err)
		}
		out = append(out, lf)
	}
	return out, rows.Err()
}

// RemoveLocalFiles deletes the entries for the given local file paths, with
// their mapped rows, in batches. It returns the paths that had entries.
func (s *MatchStore) RemoveLocalFiles(ctx context.Context, files []string) ([]string, error) {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	sorted = slices.Compact(sorted)

	var pruned []string
	for batch := range slices.Chunk(sorted, pruneBatchSize) {
		removed, err := s.removeBatch(ctx, batch)
		if err != nil {
			return pruned, err
		}
		pruned = append(pruned, removed...)
		s.logger.Debug("removed local files from report",
			logging.Int("batch", len(batch)),
			logging.Int("removed", len(removed)),
		)
	}
	return pruned, nil
}

func (s *MatchStore) removeBatch(ctx context.Context, batch []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin prune batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM match_files WHERE path = ? AND name = ?")
	if err != nil {
		return nil, fmt.Errorf("prepare prune: %w", err)
	}
	defer stmt.Close()

	var removed []string
	for _, file := range batch {
		res, err := stmt.ExecContext(ctx, filepath.Dir(file), filepath.Base(file))
		if err != nil {
			return nil, fmt.Errorf("prune %s: %w", file, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed = append(removed, file)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit prune batch: %w", err)
	}
	return removed, nil
}

// Prune removes the entries whose local file no longer exists according to
// exists, returning the removed paths.
func (s *MatchStore) Prune(ctx context.Context, exists func(path string) bool) ([]string, error) {
	locals, err := s.LocalFiles(ctx)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, local := range locals {
		if !exists(local.Path()) {
			s.logger.Debug("local file missing", logging.String(logging.FieldPath, local.Path()))
			missing = append(missing, local.Path())
		}
	}
	if len(missing) == 0 {
		s.logger.Info("no report entries needed pruning", logging.Int("local_files", len(locals)))
		return nil, nil
	}
	pruned, err := s.RemoveLocalFiles(ctx, missing)
	if err != nil {
		return pruned, err
	}
	s.logger.Info("pruned report entries",
		logging.Int("pruned", len(pruned)),
		logging.Int("local_files", len(locals)),
	)
	return pruned, nil
}
