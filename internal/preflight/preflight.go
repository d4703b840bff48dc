package preflight

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets lists the paths a command is about to use. Empty fields are skipped.
type Targets struct {
	// ScanRoot is walked and must be readable and traversable.
	ScanRoot string
	// Catalogues are opened for matching and must be existing catalogue files.
	Catalogues []string
	// Outputs are files the command creates; their parent directories must be writable.
	Outputs []string
}

// RunAll executes every check applicable to targets.
func RunAll(ctx context.Context, targets Targets) []Result {
	var results []Result

	if targets.ScanRoot != "" {
		results = append(results, CheckDirectoryAccess("Scan root", targets.ScanRoot, AccessRead))
	}
	for _, path := range targets.Catalogues {
		results = append(results, CheckCatalogue(ctx, path))
	}
	for _, path := range targets.Outputs {
		if path == "" {
			continue
		}
		results = append(results, CheckDirectoryAccess("Output directory", filepath.Dir(path), AccessReadWrite))
	}
	return results
}

// Err joins the failed results into one error, or returns nil when all passed.
func Err(results []Result) error {
	var errs []error
	for _, result := range results {
		if !result.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", result.Name, result.Detail))
		}
	}
	return errors.Join(errs...)
}
