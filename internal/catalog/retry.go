package catalog

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a write is retried on lock contention.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the fixed delay between tries.
	Backoff time.Duration
	// Sleep waits between tries; nil uses a context-aware timer. Tests inject
	// a fake to run without real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultHashRetryPolicy is two attempts one second apart.
func DefaultHashRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, Backoff: time.Second}
}

// DefaultWriteRetryPolicy is used for bulk inserts and schema changes.
func DefaultWriteRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Backoff: 50 * time.Millisecond}
}

// Do runs op until it succeeds, returns an error retryable rejects, or the
// attempts are exhausted. The last error is returned unchanged. onRetry, when
// non-nil, is called before each wait.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, onRetry func(attempt int, err error), op func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		if err := sleep(ctx, p.Backoff); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
