package locate

import (
	"context"
	"fmt"
	"log/slog"

	"dupmap/internal/dedup"
	"dupmap/internal/logging"
)

// ClusterWriter records duplicate clusters.
type ClusterWriter interface {
	AddCluster(ctx context.Context, set dedup.DuplicateSet) (int64, error)
}

// CatalogueDedup finds duplicates inside already populated catalogues.
type CatalogueDedup struct {
	finder *dedup.Finder
	writer ClusterWriter
	logger *slog.Logger
}

// NewCatalogueDedup builds the orchestrator. writer may be nil.
func NewCatalogueDedup(finder *dedup.Finder, writer ClusterWriter, logger *slog.Logger) *CatalogueDedup {
	return &CatalogueDedup{
		finder: finder,
		writer: writer,
		logger: logging.NewComponentLogger(logger, "locate"),
	}
}

// Run searches each store independently and returns every duplicate set in
// store order, together with totals across stores.
func (c *CatalogueDedup) Run(ctx context.Context, stores ...dedup.Store) ([]dedup.DuplicateSet, dedup.Stats, error) {
	var (
		all   []dedup.DuplicateSet
		total dedup.Stats
	)
	for _, store := range stores {
		sets, stats, err := c.finder.Find(ctx, store)
		if err != nil {
			return all, total, fmt.Errorf("find duplicates in %s: %w", store.Path(), err)
		}
		total.Groups += stats.Groups
		total.HashesAdded += stats.HashesAdded
		total.Duplicates += stats.Duplicates
		total.Instances += stats.Instances
		total.Unresolvable += stats.Unresolvable

		if c.writer != nil {
			for _, set := range sets {
				if _, err := c.writer.AddCluster(ctx, set); err != nil {
					return all, total, fmt.Errorf("record cluster %s: %w", set.Name, err)
				}
			}
		}
		c.logger.Info("catalogue searched",
			logging.String(logging.FieldCatalog, store.Path()),
			logging.Int("groups", stats.Groups),
			logging.Int("duplicates", stats.Duplicates),
			logging.Int("hashes_added", stats.HashesAdded),
		)
		all = append(all, sets...)
	}
	return all, total, nil
}
