package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"dupmap/internal/logging"
	"dupmap/internal/sqliteutil"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (FileRecord, error) {
	var (
		source sql.NullString
		name   string
		path   string
		size   int64
		hash   sql.NullString
	)
	if err := scanner.Scan(&source, &name, &path, &size, &hash); err != nil {
		return FileRecord{}, err
	}
	return FileRecord{
		Source: source.String,
		Name:   name,
		Path:   path,
		Size:   size,
		Hash:   hash.String,
	}, nil
}

// AddRecords inserts records under source in a single transaction. The Source
// field of each record is ignored in favour of the argument. A duplicate
// (source, path, name) rolls back the whole batch with ErrRecordNotUnique.
func (s *Store) AddRecords(ctx context.Context, records []FileRecord, source string) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureWritable(); err != nil {
		return err
	}
	for _, rec := range records {
		if strings.TrimSpace(rec.Name) == "" {
			return fmt.Errorf("add records: empty name at path %q", rec.Path)
		}
		if rec.Size < 0 {
			return fmt.Errorf("add records: negative size for %q", rec.RelativePath())
		}
	}

	err := s.writeRetry.Do(ctx, sqliteutil.IsBusy, nil, func() error {
		return s.insertBatch(ctx, records, source)
	})
	if err != nil {
		if sqliteutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrRecordNotUnique, err)
		}
		if sqliteutil.IsBusy(err) {
			return fmt.Errorf("%w: add records: %v", ErrStoreBusy, err)
		}
		return fmt.Errorf("add records: %w", err)
	}

	s.cacheMu.Lock()
	for _, rec := range records {
		rec.Source = source
		s.known[keyOf(rec)] = true
	}
	s.cacheMu.Unlock()
	return nil
}

func (s *Store) insertBatch(ctx context.Context, records []FileRecord, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.schema.insertQuery())
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, source, rec.Name, rec.Path, rec.Size); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Records yields every record ordered by path then name. The sequence is lazy
// and may be ranged over more than once; each pass re-queries the database.
func (s *Store) Records(ctx context.Context) iter.Seq2[FileRecord, error] {
	return s.query(ctx, s.schema.recordsQuery())
}

// FindCandidates returns all records with exactly the given name and size.
func (s *Store) FindCandidates(ctx context.Context, name string, size int64) ([]FileRecord, error) {
	var out []FileRecord
	for rec, err := range s.query(ctx, s.schema.candidatesQuery(), name, size) {
		if err != nil {
			return nil, fmt.Errorf("find candidates for %s (%d bytes): %w", name, size, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) iter.Seq2[FileRecord, error] {
	return func(yield func(FileRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(FileRecord{}, fmt.Errorf("query records: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				yield(FileRecord{}, fmt.Errorf("scan record: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(FileRecord{}, fmt.Errorf("iterate records: %w", err))
		}
	}
}

// DuplicateNameSizeGroups yields every (name, size) pair occurring at least
// twice, ordered by the smallest path in the group.
func (s *Store) DuplicateNameSizeGroups(ctx context.Context) iter.Seq2[NameSizeGroup, error] {
	return func(yield func(NameSizeGroup, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.schema.groupsQuery())
		if err != nil {
			yield(NameSizeGroup{}, fmt.Errorf("query duplicate groups: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var group NameSizeGroup
			if err := rows.Scan(&group.Name, &group.Size, &group.Count); err != nil {
				yield(NameSizeGroup{}, fmt.Errorf("scan duplicate group: %w", err))
				return
			}
			if !yield(group, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(NameSizeGroup{}, fmt.Errorf("iterate duplicate groups: %w", err))
		}
	}
}

// SetHash records the content digest of one file. Only a NULL hash is
// replaced, so an existing digest is never overwritten. Lock contention is
// retried per the handle's hash retry policy; exhaustion yields ErrStoreBusy.
func (s *Store) SetHash(ctx context.Context, rec FileRecord, hash string) error {
	if hash == "" {
		return errors.New("set hash: empty digest")
	}
	if err := s.ensureWritable(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	onRetry := func(attempt int, err error) {
		s.logger.Warn("hash cache write busy; retrying",
			logging.String(logging.FieldCatalog, s.path),
			logging.String(logging.FieldPath, rec.FullPath()),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	err := s.hashRetry.Do(ctx, sqliteutil.IsBusy, onRetry, func() error {
		_, execErr := s.db.ExecContext(ctx, s.schema.updateHashQuery(), hash, rec.Source, rec.Path, rec.Name)
		return execErr
	})
	switch {
	case err == nil:
		return nil
	case sqliteutil.IsBusy(err):
		return fmt.Errorf("%w: set hash for %s: %v", ErrStoreBusy, rec.FullPath(), err)
	case sqliteutil.IsReadOnly(err):
		return fmt.Errorf("%w: %v", ErrReadOnlySchema, err)
	default:
		return fmt.Errorf("set hash for %s: %w", rec.FullPath(), err)
	}
}

// Info returns record counts and the distinct sources of the catalogue.
func (s *Store) Info(ctx context.Context) (Info, error) {
	info := Info{Path: s.path, Version: s.schema.version()}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&info.Records); err != nil {
		return Info{}, fmt.Errorf("count records: %w", err)
	}
	if !s.schema.writable() {
		return info, nil
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files WHERE hash IS NOT NULL").Scan(&info.Hashed); err != nil {
		return Info{}, fmt.Errorf("count hashed records: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT source FROM files ORDER BY source")
	if err != nil {
		return Info{}, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return Info{}, fmt.Errorf("scan source: %w", err)
		}
		info.Sources = append(info.Sources, source)
	}
	if err := rows.Err(); err != nil {
		return Info{}, fmt.Errorf("iterate sources: %w", err)
	}
	return info, nil
}
