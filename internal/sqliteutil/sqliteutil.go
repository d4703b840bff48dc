// Package sqliteutil opens SQLite databases with the connection settings
// shared by catalogues and report stores, and classifies driver errors.
package sqliteutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	busyCode       = 5
	lockedCode     = 6
	readOnlyCode   = 8
	constraintCode = 19
)

// Options controls how a database handle is opened.
type Options struct {
	BusyTimeout time.Duration
	ReadOnly    bool
}

// DSN builds a modernc.org/sqlite connection string. Pragmas travel in the DSN
// so every pooled connection receives them, not only the first. The path is
// percent-encoded because SQLite parses file: names as URIs, where '?', '#'
// and '%' are reserved.
func DSN(path string, opts Options) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if opts.ReadOnly {
		params.Set("mode", "ro")
	}
	u := url.URL{Scheme: "file", OmitHost: true, Path: path, RawQuery: params.Encode()}
	return u.String()
}

// Open connects to the database at path and verifies the connection. Writable
// handles switch the database to WAL so readers do not block the hash cache.
func Open(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite db %s: %w", path, err)
	}
	if !opts.ReadOnly {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", "journal_mode=WAL", err)
		}
	}
	return db, nil
}

func code(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

// IsBusy reports whether err is lock contention with another connection.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if c, ok := code(err); ok {
		return c == busyCode || c == lockedCode
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// IsUniqueViolation reports whether err is a constraint failure on insert.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if c, ok := code(err); ok && c == constraintCode {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsReadOnly reports whether err came from writing through a read-only handle.
func IsReadOnly(err error) bool {
	if err == nil {
		return false
	}
	if c, ok := code(err); ok {
		return c == readOnlyCode
	}
	return strings.Contains(err.Error(), "readonly database")
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check %s table: %w", name, err)
	}
	return count > 0, nil
}
