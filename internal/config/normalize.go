package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeHashing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeScan() error {
	c.Scan.SuppressionFile = strings.TrimSpace(c.Scan.SuppressionFile)
	if c.Scan.SuppressionFile != "" {
		var err error
		if c.Scan.SuppressionFile, err = expandPath(c.Scan.SuppressionFile); err != nil {
			return fmt.Errorf("scan.suppression_file: %w", err)
		}
	}
	c.Scan.SystemFiles = dedupeTrimmed(c.Scan.SystemFiles)
	c.Scan.SkipDirs = dedupeTrimmed(c.Scan.SkipDirs)
	return nil
}

func (c *Config) normalizeHashing() {
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	if c.Hashing.Algorithm == "" {
		c.Hashing.Algorithm = defaultHashAlgorithm
	}
	if c.Hashing.ChunkSize == 0 {
		c.Hashing.ChunkSize = defaultHashChunkSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func dedupeTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
