package dedup

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"dupmap/internal/catalog"
	"dupmap/internal/fileutil"
	"dupmap/internal/logging"
)

// Store is the catalogue surface the finder reads and caches hashes through.
type Store interface {
	HashCache
	Path() string
	SupportsHash() bool
	DuplicateNameSizeGroups(ctx context.Context) iter.Seq2[catalog.NameSizeGroup, error]
	FindCandidates(ctx context.Context, name string, size int64) ([]catalog.FileRecord, error)
}

// DuplicateSet is one reported duplicate cluster from a catalogue.
type DuplicateSet struct {
	Catalog string
	Name    string
	Size    int64
	// Hash is empty when the catalogue only supports name+size comparison.
	Hash    string
	Members []catalog.FileRecord
}

// Stats summarizes one finder run.
type Stats struct {
	Groups       int
	HashesAdded  int
	Duplicates   int
	Instances    int
	Unresolvable int
}

// Finder runs catalogue-internal duplicate detection: candidate grouping, hash
// resolution, and clustering, reporting progress as a percentage of groups.
type Finder struct {
	hasher  *fileutil.Hasher
	workers int
	logger  *slog.Logger
}

// NewFinder constructs a finder processing up to workers groups concurrently.
func NewFinder(hasher *fileutil.Hasher, workers int, logger *slog.Logger) *Finder {
	if workers <= 0 {
		workers = 1
	}
	return &Finder{
		hasher:  hasher,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "dedup"),
	}
}

// Find returns every duplicate cluster of store in candidate-group order. A
// catalogue without hash support reports each name/size group as one set.
func (f *Finder) Find(ctx context.Context, store Store) ([]DuplicateSet, Stats, error) {
	var groups []catalog.NameSizeGroup
	for group, err := range store.DuplicateNameSizeGroups(ctx) {
		if err != nil {
			return nil, Stats{}, err
		}
		groups = append(groups, group)
	}

	stats := Stats{Groups: len(groups)}
	if len(groups) == 0 {
		f.logger.Info("no candidate groups", logging.String(logging.FieldCatalog, store.Path()))
		return nil, stats, nil
	}
	if !store.SupportsHash() {
		f.logger.Warn("catalogue has no hash column; comparing by name and size only",
			logging.String(logging.FieldCatalog, store.Path()),
			logging.Alert("name_size_only"),
		)
	}

	resolver := NewResolver(f.hasher, store, f.logger)
	results := make([][]DuplicateSet, len(groups))
	sampler := logging.NewProgressSampler(5)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(hashed, unresolvable int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		stats.HashesAdded += hashed
		stats.Unresolvable += unresolvable
		percent := logging.Percent(done, len(groups))
		if sampler.ShouldLog(percent, store.Path()) {
			f.logger.Info("duplicate search progress",
				logging.String(logging.FieldCatalog, store.Path()),
				logging.String("percent", fmt.Sprintf("%.2f%%", percent)),
				logging.Int("groups_done", done),
				logging.Int("groups_total", len(groups)),
			)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, group := range groups {
		g.Go(func() error {
			sets, hashed, unresolvable, err := f.processGroup(gctx, store, resolver, group)
			if err != nil {
				return err
			}
			results[i] = sets
			report(hashed, unresolvable)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var out []DuplicateSet
	for _, sets := range results {
		for _, set := range sets {
			stats.Duplicates++
			stats.Instances += len(set.Members)
			out = append(out, set)
		}
	}
	return out, stats, nil
}

func (f *Finder) processGroup(ctx context.Context, store Store, resolver *Resolver, group catalog.NameSizeGroup) ([]DuplicateSet, int, int, error) {
	candidates, err := store.FindCandidates(ctx, group.Name, group.Size)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(candidates) < 2 {
		return nil, 0, 0, nil
	}

	if !store.SupportsHash() {
		return []DuplicateSet{{
			Catalog: store.Path(),
			Name:    group.Name,
			Size:    group.Size,
			Members: candidates,
		}}, 0, 0, nil
	}

	hashed := 0
	resolved, err := resolver.Resolve(ctx, candidates, func(catalog.FileRecord) { hashed++ })
	if err != nil {
		return nil, hashed, 0, err
	}

	var sets []DuplicateSet
	for _, cluster := range ClusterByHash(resolved).Duplicates() {
		sets = append(sets, DuplicateSet{
			Catalog: store.Path(),
			Name:    group.Name,
			Size:    group.Size,
			Hash:    cluster.Hash,
			Members: cluster.Members,
		})
	}
	return sets, hashed, len(candidates) - len(resolved), nil
}
