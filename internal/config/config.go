package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// Plain disables the coloured terminal handler even when stderr is a TTY.
	Plain bool `toml:"plain"`
}

// Hashing contains configuration for content digests.
type Hashing struct {
	Algorithm string `toml:"algorithm"`
	ChunkSize int    `toml:"chunk_size"`
}

// Catalog contains configuration for catalogue and report databases.
type Catalog struct {
	BusyTimeoutMillis      int `toml:"busy_timeout_ms"`
	WriteBatchSize         int `toml:"write_batch_size"`
	HashRetryAttempts      int `toml:"hash_retry_attempts"`
	HashRetryBackoffMillis int `toml:"hash_retry_backoff_ms"`
}

// Dedup contains configuration for catalogue-internal duplicate detection.
type Dedup struct {
	Workers int `toml:"workers"`
}

// Scan contains configuration for directory walking.
type Scan struct {
	SuppressionFile string   `toml:"suppression_file"`
	SystemFiles     []string `toml:"system_files"`
	SkipDirs        []string `toml:"skip_dirs"`
}

// Locate contains configuration for the walk-then-match workflow.
type Locate struct {
	ProgressIntervalSeconds int  `toml:"progress_interval_seconds"`
	ExcludeSelf             bool `toml:"exclude_self"`
}

// Config encapsulates all configuration values for dupmap.
//
// Configuration sections by subsystem:
//   - Logging: log format and level
//   - Hashing: digest algorithm and read chunk size
//   - Catalog: sqlite busy timeout, write batching, hash-cache retry policy
//   - Dedup: worker count for catalogue-internal duplicate detection
//   - Scan: suppression file and walker filters
//   - Locate: walk-then-match progress and self-match handling
type Config struct {
	Logging Logging `toml:"logging"`
	Hashing Hashing `toml:"hashing"`
	Catalog Catalog `toml:"catalog"`
	Dedup   Dedup   `toml:"dedup"`
	Scan    Scan    `toml:"scan"`
	Locate  Locate  `toml:"locate"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/dupmap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %s not found", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dupmap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// HashRetryBackoff returns the delay between hash-cache write attempts.
func (c *Config) HashRetryBackoff() time.Duration {
	return time.Duration(c.Catalog.HashRetryBackoffMillis) * time.Millisecond
}

// BusyTimeout returns the sqlite busy timeout applied to every connection.
func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Catalog.BusyTimeoutMillis) * time.Millisecond
}

// ProgressInterval returns the minimum spacing between locate progress lines.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Locate.ProgressIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
