package locate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"dupmap/internal/logging"
	"dupmap/internal/match"
	"dupmap/internal/report"
	"dupmap/internal/scan"
)

// Walker yields the probe files of a locate run.
type Walker interface {
	Entries(ctx context.Context, root string) iter.Seq2[scan.Entry, error]
}

// Matcher finds catalogued copies of a probe file.
type Matcher interface {
	FindMatches(ctx context.Context, probePath string) ([]match.Match, error)
}

// MatchWriter records local files that have catalogued copies.
type MatchWriter interface {
	AddDuplicates(ctx context.Context, local report.LocalFile, mapped []string) error
}

// WalkSummary counts what a walk-then-match run found.
type WalkSummary struct {
	Probed      int
	WithMatches int
	Matches     int
	Failed      int
}

// WalkThenMatch checks each walked file against the catalogues immediately.
type WalkThenMatch struct {
	walker   Walker
	matcher  Matcher
	writer   MatchWriter
	progress *rate.Sometimes
	logger   *slog.Logger
}

// NewWalkThenMatch builds the orchestrator. writer may be nil when matches are
// only logged. Progress lines are emitted at most once per interval.
func NewWalkThenMatch(walker Walker, matcher Matcher, writer MatchWriter, interval time.Duration, logger *slog.Logger) *WalkThenMatch {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WalkThenMatch{
		walker:   walker,
		matcher:  matcher,
		writer:   writer,
		progress: &rate.Sometimes{Interval: interval},
		logger:   logging.NewComponentLogger(logger, "locate"),
	}
}

// Run walks root and records every file that has at least one match. Failures
// for a single probe are logged and counted; only walk setup failures and
// cancellation stop the run.
func (w *WalkThenMatch) Run(ctx context.Context, root string) (WalkSummary, error) {
	var summary WalkSummary
	for entry, err := range w.walker.Entries(ctx, root) {
		if err != nil {
			return summary, fmt.Errorf("walk %s: %w", root, err)
		}
		summary.Probed++
		w.progress.Do(func() {
			w.logger.Info("locate progress",
				logging.Int("probed", summary.Probed),
				logging.Int("with_matches", summary.WithMatches),
				logging.String(logging.FieldPath, entry.RelativePath()),
			)
		})

		probePath := entry.FullPath()
		matches, err := w.matcher.FindMatches(ctx, probePath)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.Failed++
			w.logger.Warn("match lookup failed; continuing",
				logging.String(logging.FieldPath, probePath),
				logging.Error(err),
				logging.Alert("match_failed"),
			)
			continue
		}
		if len(matches) == 0 {
			continue
		}

		summary.WithMatches++
		summary.Matches += len(matches)
		mapped := make([]string, 0, len(matches))
		for _, m := range matches {
			mapped = append(mapped, m.FullPath())
		}
		w.logger.Info("duplicate found",
			logging.String(logging.FieldPath, probePath),
			logging.Int("matches", len(matches)),
			logging.Any("mapped", mapped),
		)
		if w.writer == nil {
			continue
		}
		local := report.LocalFile{Dir: filepath.Dir(probePath), Name: entry.Name, Size: entry.Size}
		if err := w.writer.AddDuplicates(ctx, local, mapped); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			return summary, fmt.Errorf("record duplicates for %s: %w", probePath, err)
		}
	}
	w.logger.Info("locate complete",
		logging.Int("probed", summary.Probed),
		logging.Int("with_matches", summary.WithMatches),
		logging.Int("matches", summary.Matches),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}
