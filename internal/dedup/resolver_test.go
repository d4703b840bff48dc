package dedup_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"dupmap/internal/catalog"
	"dupmap/internal/dedup"
	"dupmap/internal/fileutil"
	"dupmap/internal/testsupport"
)

type fakeCache struct {
	mu    sync.Mutex
	calls map[string]string
	err   error
}

func (c *fakeCache) SetHash(_ context.Context, rec catalog.FileRecord, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]string)
	}
	c.calls[rec.FullPath()] = hash
	return c.err
}

func newHasher(t *testing.T, fs afero.Fs) *fileutil.Hasher {
	t.Helper()
	hasher, err := fileutil.NewHasher(fs, "md5", 4)
	require.NoError(t, err)
	return hasher
}

func rec(source, path, name string, size int64) catalog.FileRecord {
	return catalog.FileRecord{Source: source, Path: path, Name: name, Size: size}
}

func TestResolveRequiresTwoCandidates(t *testing.T) {
	resolver := dedup.NewResolver(newHasher(t, afero.NewMemMapFs()), nil, nil)
	_, err := resolver.Resolve(t.Context(), []catalog.FileRecord{rec("/a", "", "x", 1)}, nil)
	require.ErrorIs(t, err, dedup.ErrInsufficientCandidates)
	_, err = resolver.Resolve(t.Context(), nil, nil)
	require.ErrorIs(t, err, dedup.ErrInsufficientCandidates)
}

func TestResolveSkipsVanishedAndUnreadableCandidates(t *testing.T) {
	mem := afero.NewMemMapFs()
	testsupport.WriteMemFile(t, mem, "/a/one/x.txt", "same")
	testsupport.WriteMemFile(t, mem, "/a/two/x.txt", "same")
	testsupport.WriteMemFile(t, mem, "/a/locked/x.txt", "same")
	_ = mem.MkdirAll("/a/dir/x.txt", 0o755)
	fs := testsupport.NewDenyFs(mem, "/a/locked/x.txt")

	cache := &fakeCache{}
	var computed []string
	resolver := dedup.NewResolver(newHasher(t, fs), cache, nil)
	resolved, err := resolver.Resolve(t.Context(), []catalog.FileRecord{
		rec("/a", "one", "x.txt", 4),
		rec("/a", "gone", "x.txt", 4),
		rec("/a", "locked", "x.txt", 4),
		rec("/a", "dir", "x.txt", 4),
		rec("/a", "two", "x.txt", 4),
	}, func(r catalog.FileRecord) { computed = append(computed, r.FullPath()) })
	require.NoError(t, err)

	require.Len(t, resolved, 2)
	require.Equal(t, "one", resolved[0].Path)
	require.Equal(t, "two", resolved[1].Path)
	require.Equal(t, resolved[0].Hash, resolved[1].Hash)
	require.Equal(t, []string{"/a/one/x.txt", "/a/two/x.txt"}, computed)
	require.Len(t, cache.calls, 2)
	require.Equal(t, resolved[0].Hash, cache.calls["/a/one/x.txt"])
}

func TestResolveKeepsCachedHashWithoutReading(t *testing.T) {
	mem := afero.NewMemMapFs()
	testsupport.WriteMemFile(t, mem, "/a/new/x.txt", "data")
	fs := testsupport.NewDenyFs(mem)
	cache := &fakeCache{}

	cached := rec("/a", "old", "x.txt", 4)
	cached.Hash = "cafebabe"
	resolver := dedup.NewResolver(newHasher(t, fs), cache, nil)
	resolved, err := resolver.Resolve(t.Context(), []catalog.FileRecord{cached, rec("/a", "new", "x.txt", 4)}, nil)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.Equal(t, "cafebabe", resolved[0].Hash)
	require.Zero(t, fs.Opens("/a/old/x.txt"), "cached hash must not be recomputed")
	require.NotContains(t, cache.calls, "/a/old/x.txt")
}

func TestResolveToleratesCacheWriteFailure(t *testing.T) {
	mem := afero.NewMemMapFs()
	testsupport.WriteMemFile(t, mem, "/a/1/x", "z")
	testsupport.WriteMemFile(t, mem, "/a/2/x", "z")
	cache := &fakeCache{err: errors.Join(catalog.ErrStoreBusy, errors.New("locked"))}

	resolver := dedup.NewResolver(newHasher(t, mem), cache, nil)
	resolved, err := resolver.Resolve(t.Context(), []catalog.FileRecord{rec("/a", "1", "x", 1), rec("/a", "2", "x", 1)}, nil)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
}

func TestResolveIsIdempotent(t *testing.T) {
	mem := afero.NewMemMapFs()
	testsupport.WriteMemFile(t, mem, "/a/1/x", "content")
	testsupport.WriteMemFile(t, mem, "/a/2/x", "content")
	resolver := dedup.NewResolver(newHasher(t, mem), nil, nil)
	candidates := []catalog.FileRecord{rec("/a", "1", "x", 7), rec("/a", "2", "x", 7)}

	first, err := resolver.Resolve(t.Context(), candidates, nil)
	require.NoError(t, err)
	second, err := resolver.Resolve(t.Context(), candidates, nil)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
