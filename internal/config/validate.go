package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if c.Dedup.Workers <= 0 {
		return errors.New("dedup.workers must be positive")
	}
	if c.Locate.ProgressIntervalSeconds < 0 {
		return errors.New("locate.progress_interval_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateHashing() error {
	switch c.Hashing.Algorithm {
	case "md5", "sha256":
	default:
		return fmt.Errorf("hashing.algorithm: unsupported value %q (expected md5 or sha256)", c.Hashing.Algorithm)
	}
	if c.Hashing.ChunkSize <= 0 {
		return errors.New("hashing.chunk_size must be positive")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if err := ensurePositiveMap(map[string]int{
		"catalog.write_batch_size":    c.Catalog.WriteBatchSize,
		"catalog.hash_retry_attempts": c.Catalog.HashRetryAttempts,
	}); err != nil {
		return err
	}
	if c.Catalog.BusyTimeoutMillis < 0 {
		return errors.New("catalog.busy_timeout_ms must not be negative")
	}
	if c.Catalog.HashRetryBackoffMillis < 0 {
		return errors.New("catalog.hash_retry_backoff_ms must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
