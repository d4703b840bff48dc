package scan

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"dupmap/internal/fileutil"
)

// Suppression lists subtrees excluded from walks.
type Suppression struct {
	// IgnoreRecursive entries are absolute path prefixes, paths relative to the
	// scan root, or bare directory names.
	IgnoreRecursive []string `json:"ignore_recursive"`
	// IgnorePatterns are doublestar globs matched against slash-separated paths
	// relative to the scan root.
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`
}

// LoadSuppression reads a suppression file. An empty path or a missing file
// yields an empty suppression.
func LoadSuppression(fs afero.Fs, path string) (Suppression, error) {
	if strings.TrimSpace(path) == "" {
		return Suppression{}, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if fileutil.IsVanished(err) {
			return Suppression{}, nil
		}
		return Suppression{}, fmt.Errorf("read suppression file: %w", err)
	}
	var s Suppression
	if err := json.Unmarshal(data, &s); err != nil {
		return Suppression{}, fmt.Errorf("parse suppression file %s: %w", path, err)
	}
	for _, pattern := range s.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return Suppression{}, fmt.Errorf("suppression file %s: invalid pattern %q", path, pattern)
		}
	}
	return s, nil
}

// Empty reports whether nothing is suppressed.
func (s Suppression) Empty() bool {
	return len(s.IgnoreRecursive) == 0 && len(s.IgnorePatterns) == 0
}

// suppresses reports whether the entry at full (rel relative to root) falls
// under a suppression rule.
func (s Suppression) suppresses(root, full, rel, base string) bool {
	for _, entry := range s.IgnoreRecursive {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if entry == base {
			return true
		}
		prefix := entry
		if !filepath.IsAbs(prefix) {
			prefix = filepath.Join(root, prefix)
		}
		prefix = filepath.Clean(prefix)
		if full == prefix || strings.HasPrefix(full, prefix+string(filepath.Separator)) {
			return true
		}
	}
	slashed := filepath.ToSlash(rel)
	for _, pattern := range s.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
