// Package match answers whether a probe file has identical copies recorded in
// one or more catalogues.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"dupmap/internal/catalog"
	"dupmap/internal/fileutil"
	"dupmap/internal/logging"
)

// Catalogue is the store surface the matcher needs. *catalog.Store satisfies it.
type Catalogue interface {
	Path() string
	SupportsHash() bool
	FindCandidates(ctx context.Context, name string, size int64) ([]catalog.FileRecord, error)
	SetHash(ctx context.Context, rec catalog.FileRecord, hash string) error
}

// Match is one catalogued file with the same content as the probe.
type Match struct {
	Catalog string
	Source  string
	Path    string
	Name    string
	Size    int64
}

// FullPath returns the on-disk location of the matched file.
func (m Match) FullPath() string {
	return filepath.Join(m.Source, m.Path, m.Name)
}

// RelativePath returns the matched file relative to its catalogue source.
func (m Match) RelativePath() string {
	return filepath.Join(m.Path, m.Name)
}

// Options tunes matcher behaviour.
type Options struct {
	// ExcludeSelf drops a catalogued entry whose absolute path equals the probe.
	ExcludeSelf bool
	Logger      *slog.Logger
}

// Matcher compares probe files against an ordered list of catalogues.
type Matcher struct {
	stores      []Catalogue
	hasher      *fileutil.Hasher
	excludeSelf bool
	logger      *slog.Logger
}

// NewMatcher builds a matcher over stores, consulted in the given order.
func NewMatcher(hasher *fileutil.Hasher, opts Options, stores ...Catalogue) *Matcher {
	return &Matcher{
		stores:      stores,
		hasher:      hasher,
		excludeSelf: opts.ExcludeSelf,
		logger:      logging.NewComponentLogger(opts.Logger, "match"),
	}
}

// errProbeUnreadable ends matching of the probe against one store.
var errProbeUnreadable = errors.New("probe unreadable")

type probe struct {
	path   string
	name   string
	size   int64
	hasher *fileutil.Hasher

	hash    string
	hashErr error
	hashed  bool
}

// digest hashes the probe once; later calls reuse the result.
func (p *probe) digest(ctx context.Context) (string, error) {
	if !p.hashed {
		p.hash, p.hashErr = p.hasher.HashFile(ctx, p.path)
		p.hashed = true
	}
	return p.hash, p.hashErr
}

// FindMatches returns every catalogued file, across all stores, whose content
// equals the file at probePath. Catalogued files that moved or vanished are
// skipped silently. A probe that cannot be read contributes no hash matches
// and no error, though name+size matches from version 1 catalogues are kept;
// only store query failures and cancellation are returned.
func (m *Matcher) FindMatches(ctx context.Context, probePath string) ([]Match, error) {
	abs, err := filepath.Abs(probePath)
	if err != nil {
		return nil, fmt.Errorf("resolve probe path: %w", err)
	}
	info, err := m.hasher.Fs().Stat(abs)
	if err != nil {
		m.logger.Debug("probe not accessible", logging.String(logging.FieldPath, abs), logging.Error(err))
		return nil, nil
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}

	p := &probe{path: abs, name: filepath.Base(abs), size: info.Size(), hasher: m.hasher}
	var matches []Match
	for _, store := range m.stores {
		found, err := m.matchStore(ctx, store, p)
		if errors.Is(err, errProbeUnreadable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, found...)
	}
	return matches, nil
}

func (m *Matcher) matchStore(ctx context.Context, store Catalogue, p *probe) ([]Match, error) {
	candidates, err := store.FindCandidates(ctx, p.name, p.size)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.excludeSelf && filepath.Clean(candidate.FullPath()) == p.path {
			continue
		}
		if !store.SupportsHash() {
			matches = append(matches, toMatch(store, candidate))
			continue
		}
		if !candidate.HasHash() {
			hash, ok := m.hashCandidate(ctx, store, candidate)
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				continue
			}
			candidate.Hash = hash
		}

		probeHash, err := p.digest(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if fileutil.IsPermission(err) {
				m.logger.Warn("probe permission denied; skipping comparison",
					logging.String(logging.FieldCatalog, store.Path()),
					logging.String(logging.FieldPath, p.path),
					logging.Error(err),
					logging.Alert("probe_permission"),
				)
			} else {
				m.logger.Debug("probe unreadable; skipping comparison",
					logging.String(logging.FieldPath, p.path),
					logging.Error(err),
				)
			}
			return nil, errProbeUnreadable
		}
		if candidate.Hash == probeHash {
			matches = append(matches, toMatch(store, candidate))
		}
	}
	return matches, nil
}

func (m *Matcher) hashCandidate(ctx context.Context, store Catalogue, candidate catalog.FileRecord) (string, bool) {
	fullPath := candidate.FullPath()
	regular, err := fileutil.IsRegularFile(m.hasher.Fs(), fullPath)
	if err != nil || !regular {
		return "", false
	}
	hash, err := m.hasher.HashFile(ctx, fullPath)
	if err != nil {
		m.logger.Debug("catalogued file unreadable; skipped",
			logging.String(logging.FieldPath, fullPath),
			logging.Error(err),
		)
		return "", false
	}
	if err := store.SetHash(ctx, candidate, hash); err != nil && !errors.Is(err, catalog.ErrReadOnlySchema) {
		m.logger.Warn("hash not cached; will be recomputed next run",
			logging.String(logging.FieldCatalog, store.Path()),
			logging.String(logging.FieldPath, fullPath),
			logging.Error(err),
			logging.Alert("hash_cache_write"),
		)
	}
	return hash, true
}

func toMatch(store Catalogue, rec catalog.FileRecord) Match {
	return Match{
		Catalog: store.Path(),
		Source:  rec.Source,
		Path:    rec.Path,
		Name:    rec.Name,
		Size:    rec.Size,
	}
}
