package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dupmap/internal/catalog"
	"dupmap/internal/logging"
)

// Inventory is the catalogue surface the mapper writes through.
type Inventory interface {
	LoadExisting(ctx context.Context) (int, error)
	Contains(ctx context.Context, source, path, name string) (bool, error)
	AddRecords(ctx context.Context, records []catalog.FileRecord, source string) error
}

// MapStats counts what a map run did.
type MapStats struct {
	Existing int
	Added    int
	Skipped  int
	Empty    int
	Batches  int
}

// Mapper walks a root into a catalogue.
type Mapper struct {
	walker    *Walker
	inventory Inventory
	batchSize int
	logger    *slog.Logger
}

// NewMapper builds a mapper flushing every batchSize records.
func NewMapper(walker *Walker, inventory Inventory, batchSize int, logger *slog.Logger) *Mapper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Mapper{
		walker:    walker,
		inventory: inventory,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "mapper"),
	}
}

// Run catalogues every new non-empty file under root. Records are buffered and
// flushed in batches; whatever is buffered when the walk ends is flushed even
// if the walk failed or was cancelled, so progress up to that point is kept.
func (m *Mapper) Run(ctx context.Context, root string) (stats MapStats, err error) {
	existing, err := m.inventory.LoadExisting(ctx)
	if err != nil {
		return stats, fmt.Errorf("load existing records: %w", err)
	}
	stats.Existing = existing
	m.logger.Info("loaded existing records", logging.Int("records", existing))

	var (
		buffer []catalog.FileRecord
		source string
	)
	flush := func(ctx context.Context) error {
		if len(buffer) == 0 {
			return nil
		}
		if err := m.inventory.AddRecords(ctx, buffer, source); err != nil {
			buffer = buffer[:0]
			return err
		}
		stats.Added += len(buffer)
		stats.Batches++
		m.logger.Debug("flushed records", logging.Int("count", len(buffer)), logging.Int("total", stats.Added))
		buffer = buffer[:0]
		return nil
	}
	defer func() {
		if flushErr := flush(context.WithoutCancel(ctx)); flushErr != nil {
			err = errors.Join(err, fmt.Errorf("final flush: %w", flushErr))
		}
	}()

	for entry, walkErr := range m.walker.Entries(ctx, root) {
		if walkErr != nil {
			return stats, fmt.Errorf("walk %s: %w", root, walkErr)
		}
		source = entry.Root
		known, err := m.inventory.Contains(ctx, entry.Root, entry.Dir, entry.Name)
		if err != nil {
			return stats, err
		}
		if known {
			stats.Skipped++
			m.logger.Debug("already catalogued", logging.String(logging.FieldPath, entry.RelativePath()))
			continue
		}
		if entry.Size == 0 {
			stats.Empty++
			continue
		}
		buffer = append(buffer, catalog.FileRecord{Path: entry.Dir, Name: entry.Name, Size: entry.Size})
		if len(buffer) >= m.batchSize {
			if err := flush(ctx); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}
