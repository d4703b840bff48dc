package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dupmap/internal/sqliteutil"
)

func openExisting(ctx context.Context, path string, busy time.Duration) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, path)
		}
		return nil, fmt.Errorf("stat report: %w", err)
	}
	return sqliteutil.Open(ctx, path, sqliteutil.Options{BusyTimeout: busy})
}

func openFresh(ctx context.Context, path string, busy time.Duration, ddl string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
	}
	db, err := sqliteutil.Open(ctx, path, sqliteutil.Options{BusyTimeout: busy})
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create report schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("commit report schema: %w", err)
	}
	return db, nil
}

func requireTables(ctx context.Context, db *sql.DB, path string, tables ...string) error {
	for _, table := range tables {
		ok, err := sqliteutil.TableExists(ctx, db, table)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: missing %s table", path, table)
		}
	}
	return nil
}
