package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dupmap/internal/catalog"
	"dupmap/internal/fileutil"
	"dupmap/internal/logging"
)

// ErrInsufficientCandidates indicates Resolve was called with fewer than two
// candidates; hashing a lone file has no comparison value.
var ErrInsufficientCandidates = errors.New("at least two candidates are required")

// HashCache persists computed digests. *catalog.Store satisfies it.
type HashCache interface {
	SetHash(ctx context.Context, rec catalog.FileRecord, hash string) error
}

// Resolver computes missing content hashes for candidate records and caches
// them back into the catalogue.
type Resolver struct {
	hasher *fileutil.Hasher
	cache  HashCache
	logger *slog.Logger
}

// NewResolver builds a resolver. A nil cache disables persistence.
func NewResolver(hasher *fileutil.Hasher, cache HashCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{hasher: hasher, cache: cache, logger: logger}
}

// Resolve returns the candidates whose hash is known or could be computed,
// each carrying that hash, in input order. Candidates that vanished, are no
// longer regular files, or cannot be read are dropped and logged at debug
// level. onHash, when non-nil, is called for each freshly computed digest.
// Only context cancellation and caller errors are returned.
func (r *Resolver) Resolve(ctx context.Context, candidates []catalog.FileRecord, onHash func(catalog.FileRecord)) ([]catalog.FileRecord, error) {
	if len(candidates) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientCandidates, len(candidates))
	}

	resolved := make([]catalog.FileRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if candidate.HasHash() {
			resolved = append(resolved, candidate)
			continue
		}
		hash, ok := r.hashCandidate(ctx, candidate)
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}
		candidate.Hash = hash
		r.persist(ctx, candidate)
		if onHash != nil {
			onHash(candidate)
		}
		resolved = append(resolved, candidate)
	}
	return resolved, nil
}

func (r *Resolver) hashCandidate(ctx context.Context, candidate catalog.FileRecord) (string, bool) {
	fullPath := candidate.FullPath()
	regular, err := fileutil.IsRegularFile(r.hasher.Fs(), fullPath)
	if err != nil {
		r.logger.Debug("candidate not accessible; excluded",
			logging.String(logging.FieldPath, fullPath),
			logging.Error(err),
		)
		return "", false
	}
	if !regular {
		r.logger.Debug("candidate missing or not a regular file; excluded",
			logging.String(logging.FieldPath, fullPath),
		)
		return "", false
	}

	hash, err := r.hasher.HashFile(ctx, fullPath)
	switch {
	case err == nil:
		return hash, true
	case fileutil.IsVanished(err), fileutil.IsPermission(err):
		r.logger.Debug("candidate unreadable; excluded",
			logging.String(logging.FieldPath, fullPath),
			logging.Error(err),
		)
	case ctx.Err() != nil:
	default:
		r.logger.Warn("candidate hash failed; excluded",
			logging.String(logging.FieldPath, fullPath),
			logging.Error(err),
			logging.Alert("hash_failed"),
		)
	}
	return "", false
}

func (r *Resolver) persist(ctx context.Context, rec catalog.FileRecord) {
	if r.cache == nil {
		return
	}
	err := r.cache.SetHash(ctx, rec, rec.Hash)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrReadOnlySchema):
		r.logger.Debug("hash not cached; catalogue is read-only",
			logging.String(logging.FieldPath, rec.FullPath()),
		)
	default:
		r.logger.Warn("hash not cached; will be recomputed next run",
			logging.String(logging.FieldPath, rec.FullPath()),
			logging.String(logging.FieldHash, rec.Hash),
			logging.Error(err),
			logging.Alert("hash_cache_write"),
		)
	}
}
