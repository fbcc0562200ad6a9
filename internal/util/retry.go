package util

import (
	"context"
	"time"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy configures Retry
type RetryPolicy struct {
	Attempts  int           // Total attempts, at least 1
	Backoff   time.Duration // Base delay, doubled after each failed attempt
	Retryable func(error) bool
	Sleep     SleepFunc
}

// Retry calls fn until it succeeds, the policy is exhausted, or the error is
// not retryable. The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, 4*base...
			if serr := sleep(ctx, p.Backoff*time.Duration(1<<(attempt-1))); serr != nil {
				return err
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}
