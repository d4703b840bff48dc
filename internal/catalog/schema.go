package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"dupmap/internal/sqliteutil"
)

//go:embed schema_v2.sql
var schemaV2SQL string

// CurrentVersion is the schema version written by Create.
const CurrentVersion = 2

// schema abstracts the column layout of a catalogue version. Each variant owns
// its SQL; the Store never branches on the version number directly.
type schema interface {
	version() int
	writable() bool
	recordsQuery() string
	existsQuery() string
	keyArgs(k recordKey) []any
	candidatesQuery() string
	groupsQuery() string
	insertQuery() string
	updateHashQuery() string
}

// schemaV2 is the current layout: source, name, path, size, hash.
type schemaV2 struct{}

func (schemaV2) version() int   { return 2 }
func (schemaV2) writable() bool { return true }

func (schemaV2) recordsQuery() string {
	return "SELECT source, name, path, size, hash FROM files ORDER BY path, name, source"
}

func (schemaV2) existsQuery() string {
	return "SELECT COUNT(1) FROM files WHERE source = ? AND path = ? AND name = ?"
}

func (schemaV2) keyArgs(k recordKey) []any {
	return []any{k.source, k.path, k.name}
}

func (schemaV2) candidatesQuery() string {
	return "SELECT source, name, path, size, hash FROM files WHERE name = ? AND size = ? ORDER BY path, name, source"
}

func (schemaV2) groupsQuery() string {
	return `SELECT name, size, COUNT(*) FROM files
		GROUP BY name, size HAVING COUNT(*) > 1
		ORDER BY MIN(path), name, size`
}

func (schemaV2) insertQuery() string {
	return "INSERT INTO files (source, name, path, size) VALUES (?, ?, ?, ?)"
}

func (schemaV2) updateHashQuery() string {
	return "UPDATE files SET hash = ? WHERE source = ? AND path = ? AND name = ? AND hash IS NULL"
}

// schemaV1 is the legacy layout without metadata, source, or hash columns.
// Source and hash read back as empty strings.
type schemaV1 struct{}

func (schemaV1) version() int   { return 1 }
func (schemaV1) writable() bool { return false }

func (schemaV1) recordsQuery() string {
	return "SELECT '', name, path, size, NULL FROM files ORDER BY path, name"
}

func (schemaV1) existsQuery() string {
	return "SELECT COUNT(1) FROM files WHERE path = ? AND name = ?"
}

func (schemaV1) keyArgs(k recordKey) []any {
	return []any{k.path, k.name}
}

func (schemaV1) candidatesQuery() string {
	return "SELECT '', name, path, size, NULL FROM files WHERE name = ? AND size = ? ORDER BY path, name"
}

func (schemaV1) groupsQuery() string {
	return `SELECT name, size, COUNT(*) FROM files
		GROUP BY name, size HAVING COUNT(*) > 1
		ORDER BY MIN(path), name, size`
}

func (schemaV1) insertQuery() string     { return "" }
func (schemaV1) updateHashQuery() string { return "" }

func schemaFor(version int) (schema, error) {
	switch version {
	case 1:
		return schemaV1{}, nil
	case 2:
		return schemaV2{}, nil
	default:
		return nil, fmt.Errorf("%w: version %d", ErrSchemaUnsupported, version)
	}
}

// detectSchema inspects an existing database. A metadata table carries the
// version; a bare files table is the version 1 layout.
func detectSchema(ctx context.Context, db *sql.DB) (schema, error) {
	hasMetadata, err := sqliteutil.TableExists(ctx, db, "metadata")
	if err != nil {
		return nil, err
	}
	if hasMetadata {
		var version int
		if err := db.QueryRowContext(ctx, "SELECT version FROM metadata LIMIT 1").Scan(&version); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: metadata table is empty", ErrSchemaUnsupported)
			}
			return nil, fmt.Errorf("read schema version: %w", err)
		}
		return schemaFor(version)
	}
	hasFiles, err := sqliteutil.TableExists(ctx, db, "files")
	if err != nil {
		return nil, err
	}
	if hasFiles {
		return schemaV1{}, nil
	}
	return nil, fmt.Errorf("%w: no files table", ErrSchemaUnsupported)
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaV2SQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO metadata (version) VALUES (?)", CurrentVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
