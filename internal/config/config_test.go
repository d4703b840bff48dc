package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dupmap/internal/config"
)

func TestLoadDefaultConfigWhenAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	want := filepath.Join(tempHome, ".config", "dupmap", "config.toml")
	if resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if cfg.Hashing.Algorithm != "md5" {
		t.Fatalf("expected md5 default, got %q", cfg.Hashing.Algorithm)
	}
	if cfg.Hashing.ChunkSize != 8192 {
		t.Fatalf("expected 8192 chunk size, got %d", cfg.Hashing.ChunkSize)
	}
	if cfg.Catalog.HashRetryAttempts != 2 {
		t.Fatalf("expected two retry attempts, got %d", cfg.Catalog.HashRetryAttempts)
	}
	if cfg.HashRetryBackoff() != time.Second {
		t.Fatalf("expected one second backoff, got %s", cfg.HashRetryBackoff())
	}
	if cfg.Catalog.WriteBatchSize != 100 {
		t.Fatalf("unexpected batch size: %d", cfg.Catalog.WriteBatchSize)
	}
	if !cfg.Locate.ExcludeSelf {
		t.Fatal("expected self matches to be excluded by default")
	}
	if len(cfg.Scan.SystemFiles) != 3 {
		t.Fatalf("unexpected system files: %v", cfg.Scan.SystemFiles)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dupmap.toml")

	type payload struct {
		Hashing struct {
			Algorithm string `toml:"algorithm"`
		} `toml:"hashing"`
		Dedup struct {
			Workers int `toml:"workers"`
		} `toml:"dedup"`
		Scan struct {
			SuppressionFile string   `toml:"suppression_file"`
			SystemFiles     []string `toml:"system_files"`
		} `toml:"scan"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Hashing.Algorithm = " SHA256 "
	custom.Dedup.Workers = 4
	custom.Scan.SuppressionFile = filepath.Join(tempDir, "suppress.json")
	custom.Scan.SystemFiles = []string{"Thumbs.db", " Thumbs.db ", ""}
	custom.Logging.Format = "bogus"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Hashing.Algorithm != "sha256" {
		t.Fatalf("expected normalized algorithm, got %q", cfg.Hashing.Algorithm)
	}
	if cfg.Dedup.Workers != 4 {
		t.Fatalf("unexpected workers: %d", cfg.Dedup.Workers)
	}
	if len(cfg.Scan.SystemFiles) != 1 || cfg.Scan.SystemFiles[0] != "Thumbs.db" {
		t.Fatalf("expected deduplicated system files, got %v", cfg.Scan.SystemFiles)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected unknown format to fall back to console, got %q", cfg.Logging.Format)
	}
	if cfg.Catalog.BusyTimeoutMillis != config.Default().Catalog.BusyTimeoutMillis {
		t.Fatalf("expected untouched defaults to survive, got %d", cfg.Catalog.BusyTimeoutMillis)
	}
}

func TestLoadMissingCustomPath(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"algorithm", func(c *config.Config) { c.Hashing.Algorithm = "crc32" }, "hashing.algorithm"},
		{"chunk size", func(c *config.Config) { c.Hashing.ChunkSize = -1 }, "hashing.chunk_size"},
		{"batch size", func(c *config.Config) { c.Catalog.WriteBatchSize = 0 }, "catalog.write_batch_size"},
		{"attempts", func(c *config.Config) { c.Catalog.HashRetryAttempts = 0 }, "catalog.hash_retry_attempts"},
		{"backoff", func(c *config.Config) { c.Catalog.HashRetryBackoffMillis = -5 }, "catalog.hash_retry_backoff_ms"},
		{"workers", func(c *config.Config) { c.Dedup.Workers = 0 }, "dedup.workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Hashing.Algorithm != "md5" {
		t.Fatalf("unexpected sample algorithm %q", cfg.Hashing.Algorithm)
	}
}
