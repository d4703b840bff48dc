package report_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dupmap/internal/catalog"
	"dupmap/internal/dedup"
	"dupmap/internal/report"
)

func member(source, path string) catalog.FileRecord {
	return catalog.FileRecord{Source: source, Path: path, Name: "p.txt", Size: 5, Hash: "abc"}
}

func TestClusterStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.db")
	store, err := report.CreateClusterStore(t.Context(), path, 0, nil)
	require.NoError(t, err)

	set := dedup.DuplicateSet{Name: "p.txt", Size: 5, Hash: "abc", Members: []catalog.FileRecord{
		member("/a", "one"), member("/b", "two"), member("/a", "three"),
	}}
	id, err := store.AddCluster(t.Context(), set)
	require.NoError(t, err)
	require.Positive(t, id)
	require.NoError(t, store.Close())

	reopened, err := report.OpenClusterStore(t.Context(), path, 0, nil)
	require.NoError(t, err)
	defer reopened.Close()

	clusters, err := reopened.Clusters(t.Context())
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	require.Equal(t, "abc", clusters[0].Hash)
	require.Equal(t, set.Members, clusters[0].Instances)
}

func TestClusterStoreRejectsInvalidClusters(t *testing.T) {
	store, err := report.CreateClusterStore(t.Context(), filepath.Join(t.TempDir(), "c.db"), 0, nil)
	require.NoError(t, err)
	defer store.Close()

	mismatched := member("/b", "two")
	mismatched.Size = 6
	_, err = store.AddCluster(t.Context(), dedup.DuplicateSet{Name: "p.txt", Size: 5, Hash: "abc",
		Members: []catalog.FileRecord{member("/a", "one"), mismatched}})
	require.ErrorIs(t, err, report.ErrInvalidCluster)

	_, err = store.AddCluster(t.Context(), dedup.DuplicateSet{Name: "p.txt", Size: 5, Hash: "abc",
		Members: []catalog.FileRecord{member("/a", "one")}})
	require.ErrorIs(t, err, report.ErrInvalidCluster)

	clusters, err := store.Clusters(t.Context())
	require.NoError(t, err)
	require.Empty(t, clusters)
}

func TestClusterStoreRemoveInstance(t *testing.T) {
	store, err := report.CreateClusterStore(t.Context(), filepath.Join(t.TempDir(), "c.db"), 0, nil)
	require.NoError(t, err)
	defer store.Close()
	ctx := t.Context()

	_, err = store.AddCluster(ctx, dedup.DuplicateSet{Name: "p.txt", Size: 5, Hash: "abc",
		Members: []catalog.FileRecord{member("/a", "1"), member("/a", "2"), member("/a", "3")}})
	require.NoError(t, err)

	found, err := store.RemoveInstance(ctx, "/a", "2", "p.txt")
	require.NoError(t, err)
	require.True(t, found)
	clusters, err := store.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters[0].Instances, 2)

	found, err = store.RemoveInstance(ctx, "/a", "2", "p.txt")
	require.NoError(t, err)
	require.False(t, found)

	_, err = store.RemoveInstance(ctx, "/a", "1", "p.txt")
	require.NoError(t, err)
	clusters, err = store.Clusters(ctx)
	require.NoError(t, err)
	require.Empty(t, clusters, "a cluster with one instance left is dissolved")
}
