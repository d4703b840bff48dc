package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dupmap/internal/config"
	"dupmap/internal/logging"
	"dupmap/internal/sqliteutil"
)

// Options controls how a catalogue handle behaves.
type Options struct {
	BusyTimeout time.Duration
	// ReadOnly opens the database without write access. Hash-cache writes then
	// fail with ErrReadOnlySchema and callers proceed without caching.
	ReadOnly   bool
	HashRetry  RetryPolicy
	WriteRetry RetryPolicy
	Logger     *slog.Logger
}

// DefaultOptions returns options matching the built-in configuration defaults.
func DefaultOptions() Options {
	return Options{
		BusyTimeout: time.Second,
		HashRetry:   DefaultHashRetryPolicy(),
		WriteRetry:  DefaultWriteRetryPolicy(),
	}
}

// OptionsFromConfig derives store options from the catalog configuration section.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := DefaultOptions()
	if cfg != nil {
		opts.BusyTimeout = cfg.BusyTimeout()
		opts.HashRetry.Attempts = cfg.Catalog.HashRetryAttempts
		opts.HashRetry.Backoff = cfg.HashRetryBackoff()
	}
	opts.Logger = logger
	return opts
}

// Store is a handle to one catalogue database.
type Store struct {
	db         *sql.DB
	path       string
	schema     schema
	readOnly   bool
	hashRetry  RetryPolicy
	writeRetry RetryPolicy
	logger     *slog.Logger

	// writeMu serializes hash-cache updates issued through this handle.
	writeMu sync.Mutex

	cacheMu  sync.Mutex
	known    map[recordKey]bool
	complete bool
}

// Create makes a new version 2 catalogue at path, replacing the files table of
// any catalogue already there.
func Create(ctx context.Context, path string, opts Options) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalogue directory: %w", err)
		}
	}
	opts.ReadOnly = false
	db, err := sqliteutil.Open(ctx, path, sqliteutil.Options{BusyTimeout: opts.BusyTimeout})
	if err != nil {
		return nil, err
	}
	if err := opts.WriteRetry.Do(ctx, sqliteutil.IsBusy, nil, func() error {
		return createSchema(ctx, db)
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	store := newStore(db, path, schemaV2{}, opts)
	store.complete = true
	store.logger.Debug("catalogue created", logging.String(logging.FieldCatalog, path))
	return store, nil
}

// Open connects to an existing catalogue, detecting its schema version.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, path)
		}
		return nil, fmt.Errorf("stat catalogue: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrSchemaUnsupported, path)
	}
	db, err := sqliteutil.Open(ctx, path, sqliteutil.Options{
		BusyTimeout: opts.BusyTimeout,
		ReadOnly:    opts.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	detected, err := detectSchema(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	store := newStore(db, path, detected, opts)
	store.logger.Debug("catalogue opened",
		logging.String(logging.FieldCatalog, path),
		logging.Int("schema_version", detected.version()),
		logging.Bool("read_only", opts.ReadOnly),
	)
	return store, nil
}

// OpenOrCreate opens path when it exists and creates a fresh catalogue otherwise.
func OpenOrCreate(ctx context.Context, path string, opts Options) (*Store, error) {
	store, err := Open(ctx, path, opts)
	if errors.Is(err, ErrStoreNotFound) {
		return Create(ctx, path, opts)
	}
	return store, err
}

func newStore(db *sql.DB, path string, s schema, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		db:         db,
		path:       path,
		schema:     s,
		readOnly:   opts.ReadOnly,
		hashRetry:  opts.HashRetry,
		writeRetry: opts.WriteRetry,
		logger:     logger,
		known:      make(map[recordKey]bool),
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the catalogue file location.
func (s *Store) Path() string {
	return s.path
}

// Version returns the detected schema version.
func (s *Store) Version() int {
	return s.schema.version()
}

// SupportsHash reports whether content digests can be compared and cached.
// Version 1 catalogues lack the source column needed to locate files, so they
// only support name+size comparison.
func (s *Store) SupportsHash() bool {
	return s.schema.writable()
}

func (s *Store) ensureWritable() error {
	if s.readOnly || !s.schema.writable() {
		return fmt.Errorf("%w: %s (schema version %d)", ErrReadOnlySchema, s.path, s.schema.version())
	}
	return nil
}
