package scan

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"dupmap/internal/config"
	"dupmap/internal/fileutil"
	"dupmap/internal/logging"
)

// Entry is one regular file found by a walk.
type Entry struct {
	// Root is the absolute walk root.
	Root string
	// Dir is the parent directory relative to Root ("." for top-level files).
	Dir  string
	Name string
	Size int64
}

// FullPath returns the absolute path of the entry.
func (e Entry) FullPath() string {
	return filepath.Join(e.Root, e.Dir, e.Name)
}

// RelativePath returns the entry path relative to Root.
func (e Entry) RelativePath() string {
	return filepath.Join(e.Dir, e.Name)
}

// WalkerOptions configures which entries a walk yields.
type WalkerOptions struct {
	SystemFiles []string
	SkipDirs    []string
	Suppression Suppression
	Logger      *slog.Logger
}

// WalkerOptionsFromConfig builds options from the scan configuration section.
func WalkerOptionsFromConfig(cfg *config.Config, suppression Suppression, logger *slog.Logger) WalkerOptions {
	return WalkerOptions{
		SystemFiles: cfg.Scan.SystemFiles,
		SkipDirs:    cfg.Scan.SkipDirs,
		Suppression: suppression,
		Logger:      logger,
	}
}

// Walker enumerates regular files beneath a root.
type Walker struct {
	fs          afero.Fs
	systemFiles map[string]struct{}
	skipDirs    map[string]struct{}
	suppression Suppression
	logger      *slog.Logger
}

// NewWalker builds a walker over fs. A nil fs uses the operating system.
func NewWalker(fs afero.Fs, opts WalkerOptions) *Walker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Walker{
		fs:          fs,
		systemFiles: toSet(opts.SystemFiles),
		skipDirs:    toSet(opts.SkipDirs),
		suppression: opts.Suppression,
		logger:      logging.NewComponentLogger(opts.Logger, "walker"),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

var errStopWalk = errors.New("stop walk")

// Entries lazily walks root in lexical order. The sequence can be ranged over
// repeatedly; each pass re-reads the tree. Entries that vanish or cannot be
// read during the walk are skipped and logged at debug level. The only errors
// yielded are an unusable root and context cancellation.
func (w *Walker) Entries(ctx context.Context, root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		info, err := w.fs.Stat(absRoot)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		if !info.IsDir() {
			yield(Entry{}, &os.PathError{Op: "walk", Path: absRoot, Err: errors.New("not a directory")})
			return
		}

		walkErr := afero.Walk(w.fs, absRoot, func(path string, info os.FileInfo, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				w.logger.Debug("walk entry unreadable; skipped",
					logging.String(logging.FieldPath, path),
					logging.Error(err),
				)
				if info != nil && info.IsDir() && path != absRoot {
					return filepath.SkipDir
				}
				return nil
			}
			if path == absRoot {
				return nil
			}

			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return relErr
			}
			base := info.Name()

			if info.IsDir() {
				if _, skip := w.skipDirs[base]; skip {
					return filepath.SkipDir
				}
				if w.suppression.suppresses(absRoot, path, rel, base) {
					w.logger.Debug("suppressed subtree", logging.String(logging.FieldPath, path))
					return filepath.SkipDir
				}
				return nil
			}
			if fileutil.IsSymlink(info) || !info.Mode().IsRegular() {
				return nil
			}
			if _, system := w.systemFiles[base]; system {
				return nil
			}
			if w.suppression.suppresses(absRoot, path, rel, base) {
				return nil
			}

			entry := Entry{
				Root: absRoot,
				Dir:  filepath.Dir(rel),
				Name: base,
				Size: info.Size(),
			}
			if !yield(entry, nil) {
				return errStopWalk
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, errStopWalk) {
			yield(Entry{}, walkErr)
		}
	}
}
