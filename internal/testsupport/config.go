package testsupport

import (
	"path/filepath"
	"testing"

	"dupmap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a default config with retry backoff disabled so busy
// paths run without real delays. The suppression file points into a per-test
// temp directory and does not exist unless a test writes it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Catalog.HashRetryBackoffMillis = 0
	cfgVal.Scan.SuppressionFile = filepath.Join(base, "suppression.json")

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithWorkers sets the dedup worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dedup.Workers = n
	}
}

// WithHashAlgorithm sets the content digest algorithm.
func WithHashAlgorithm(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Hashing.Algorithm = name
	}
}

// WithExcludeSelf toggles probe self-match exclusion.
func WithExcludeSelf(exclude bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Locate.ExcludeSelf = exclude
	}
}

// WithBatchSize overrides the catalogue write batch size.
func WithBatchSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.WriteBatchSize = n
	}
}
