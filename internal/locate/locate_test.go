package locate_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"dupmap/internal/catalog"
	"dupmap/internal/dedup"
	"dupmap/internal/fileutil"
	"dupmap/internal/locate"
	"dupmap/internal/match"
	"dupmap/internal/report"
	"dupmap/internal/scan"
	"dupmap/internal/testsupport"
)

type fixture struct {
	fs     afero.Fs
	hasher *fileutil.Hasher
	walker *scan.Walker
	store  *catalog.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	files := map[string]string{
		"/a/docs/x.txt":   "same-x",
		"/a/docs/y.txt":   "only-a",
		"/a/pics/z.jpg":   "zzz",
		"/b/backup/x.txt": "same-x",
		"/b/backup/y.txt": "diff-a",
		"/b/old/z.jpg":    "zzz",
		"/b/new/z.jpg":    "zzz",
	}
	for path, content := range files {
		testsupport.WriteMemFile(t, mem, path, content)
	}
	cfg := testsupport.NewConfig(t)
	walker := scan.NewWalker(mem, scan.WalkerOptionsFromConfig(cfg, scan.Suppression{}, nil))

	store := testsupport.MustCreateCatalog(t, "")
	for _, root := range []string{"/a", "/b"} {
		_, err := scan.NewMapper(walker, store, 100, nil).Run(t.Context(), root)
		require.NoError(t, err)
	}
	hasher, err := fileutil.NewHasher(mem, "md5", 0)
	require.NoError(t, err)
	return fixture{fs: mem, hasher: hasher, walker: walker, store: store}
}

func TestWalkThenMatchRecordsDuplicates(t *testing.T) {
	fx := newFixture(t)
	matches, err := report.CreateMatchStore(t.Context(), filepath.Join(t.TempDir(), "dups.db"), 0, nil)
	require.NoError(t, err)
	defer matches.Close()

	matcher := match.NewMatcher(fx.hasher, match.Options{ExcludeSelf: true}, fx.store)
	summary, err := locate.NewWalkThenMatch(fx.walker, matcher, matches, time.Hour, nil).Run(t.Context(), "/a")
	require.NoError(t, err)
	require.Equal(t, locate.WalkSummary{Probed: 3, WithMatches: 2, Matches: 3}, summary)

	var got []report.Record
	for rec, err := range matches.Duplicates(t.Context()) {
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Equal(t, []report.Record{
		{Filename: "x.txt", LocalFile: "/a/docs/x.txt", MappedFile: "/b/backup/x.txt"},
		{Filename: "z.jpg", LocalFile: "/a/pics/z.jpg", MappedFile: "/b/new/z.jpg"},
		{Filename: "z.jpg", LocalFile: "/a/pics/z.jpg", MappedFile: "/b/old/z.jpg"},
	}, got)
}

func TestStrategiesAgree(t *testing.T) {
	fx := newFixture(t)

	finder := dedup.NewFinder(fx.hasher, 2, nil)
	sets, stats, err := locate.NewCatalogueDedup(finder, nil, nil).Run(t.Context(), fx.store)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Duplicates)

	matcher := match.NewMatcher(fx.hasher, match.Options{ExcludeSelf: true}, fx.store)
	for _, set := range sets {
		for _, member := range set.Members {
			found, err := matcher.FindMatches(t.Context(), member.FullPath())
			require.NoError(t, err)

			var got []string
			for _, m := range found {
				got = append(got, m.FullPath())
			}
			var want []string
			for _, other := range set.Members {
				if other.FullPath() != member.FullPath() {
					want = append(want, other.FullPath())
				}
			}
			slices.Sort(got)
			slices.Sort(want)
			require.Equal(t, want, got, "matches for %s", member.FullPath())
		}
	}
}

func TestCatalogueDedupWritesClusters(t *testing.T) {
	fx := newFixture(t)
	clusters, err := report.CreateClusterStore(t.Context(), filepath.Join(t.TempDir(), "clusters.db"), 0, nil)
	require.NoError(t, err)
	defer clusters.Close()

	_, _, err = locate.NewCatalogueDedup(dedup.NewFinder(fx.hasher, 1, nil), clusters, nil).Run(t.Context(), fx.store)
	require.NoError(t, err)

	stored, err := clusters.Clusters(t.Context())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, "x.txt", stored[0].Name)
	require.Len(t, stored[1].Instances, 3)
}

type flakyMatcher struct {
	failOn string
}

func (f flakyMatcher) FindMatches(_ context.Context, probe string) ([]match.Match, error) {
	if probe == f.failOn {
		return nil, errors.New("disk I/O error")
	}
	return []match.Match{{Source: "/elsewhere", Path: ".", Name: filepath.Base(probe)}}, nil
}

func TestWalkThenMatchContinuesPastFailures(t *testing.T) {
	fx := newFixture(t)
	summary, err := locate.NewWalkThenMatch(fx.walker, flakyMatcher{failOn: "/a/docs/y.txt"}, nil, time.Hour, nil).
		Run(t.Context(), "/a")
	require.NoError(t, err)
	require.Equal(t, locate.WalkSummary{Probed: 3, WithMatches: 2, Matches: 2, Failed: 1}, summary)
}
