package youtube

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx ends
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the real timer-backed SleepFunc
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy retries transient failures with a linearly growing delay
// (BaseDelay × attempt). Quota and fatal failures return at once.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
	// OnRetry, when set, is told about each retry before sleeping
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy matches the platform guidance of a few spaced retries
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		Sleep:       ContextSleep,
	}
}

// Delay returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Execute runs fn until it succeeds, fails non-transiently, or attempts run out.
// It reports the number of attempts made.
func (p RetryPolicy) Execute(ctx context.Context, fn func() error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ClassifyError(err) != ErrorClassTransient || attempt == maxAttempts {
			return attempt, err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, lastErr
}
