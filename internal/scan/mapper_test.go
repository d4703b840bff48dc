package scan_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"dupmap/internal/catalog"
	"dupmap/internal/scan"
	"dupmap/internal/testsupport"
)

func TestMapperCataloguesAndAppends(t *testing.T) {
	mem := afero.NewMemMapFs()
	testsupport.WriteMemFile(t, mem, "/root/a/one.txt", "one")
	testsupport.WriteMemFile(t, mem, "/root/b/two.txt", "two!")
	testsupport.WriteMemFile(t, mem, "/root/empty.txt", "")

	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := catalog.Create(t.Context(), path, catalog.DefaultOptions())
	require.NoError(t, err)
	defer store.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBatchSize(1))
	walker := scan.NewWalker(mem, scan.WalkerOptionsFromConfig(cfg, scan.Suppression{}, nil))
	stats, err := scan.NewMapper(walker, store, cfg.Catalog.WriteBatchSize, nil).Run(t.Context(), "/root")
	require.NoError(t, err)
	require.Equal(t, scan.MapStats{Added: 2, Empty: 1, Batches: 2}, stats)

	var records []catalog.FileRecord
	for rec, err := range store.Records(t.Context()) {
		require.NoError(t, err)
		records = append(records, rec)
	}
	require.Len(t, records, 2)
	require.Equal(t, catalog.FileRecord{Source: "/root", Path: "a", Name: "one.txt", Size: 3}, records[0])

	testsupport.WriteMemFile(t, mem, "/root/c/three.txt", "three")
	reopened := testsupport.MustOpenCatalog(t, path, catalog.DefaultOptions())
	stats, err = scan.NewMapper(walker, reopened, 100, nil).Run(t.Context(), "/root")
	require.NoError(t, err)
	require.Equal(t, scan.MapStats{Existing: 2, Added: 1, Skipped: 2, Empty: 1, Batches: 1}, stats)
}

type cancellingInventory struct {
	cancel   context.CancelFunc
	calls    int
	cancelAt int
	added    []catalog.FileRecord
}

func (c *cancellingInventory) LoadExisting(context.Context) (int, error) { return 0, nil }

func (c *cancellingInventory) Contains(context.Context, string, string, string) (bool, error) {
	c.calls++
	if c.calls == c.cancelAt {
		c.cancel()
	}
	return false, nil
}

func (c *cancellingInventory) AddRecords(ctx context.Context, records []catalog.FileRecord, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.added = append(c.added, records...)
	return nil
}

func TestMapperFlushesBufferOnCancellation(t *testing.T) {
	mem := afero.NewMemMapFs()
	for _, name := range []string{"a", "b", "c", "d"} {
		testsupport.WriteMemFile(t, mem, "/root/"+name, "data")
	}
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	inventory := &cancellingInventory{cancel: cancel, cancelAt: 2}

	walker := scan.NewWalker(mem, defaultOptions(t))
	stats, err := scan.NewMapper(walker, inventory, 10, nil).Run(ctx, "/root")
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, inventory.added, 2, "buffered records survive cancellation")
	require.Equal(t, 2, stats.Added)
}
