package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"dupmap/internal/catalog"
)

// MustCreateCatalog creates a catalogue in a temp directory, inserts records
// under source, and registers cleanup.
func MustCreateCatalog(t testing.TB, source string, records ...catalog.FileRecord) *catalog.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Create(context.Background(), path, catalog.DefaultOptions())
	if err != nil {
		t.Fatalf("catalog.Create: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if len(records) > 0 {
		if err := store.AddRecords(context.Background(), records, source); err != nil {
			t.Fatalf("AddRecords: %v", err)
		}
	}
	return store
}

// MustOpenCatalog opens an existing catalogue and registers cleanup.
func MustOpenCatalog(t testing.TB, path string, opts catalog.Options) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Record is shorthand for a catalogue record without a hash.
func Record(path, name string, size int64) catalog.FileRecord {
	return catalog.FileRecord{Path: path, Name: name, Size: size}
}
