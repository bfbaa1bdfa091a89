// Package resilience provides retry with exponential back-off. The delivery
// engine's poll loop reuses the back-off computation; one-shot API calls are
// never retried automatically.
package resilience

import (
	"context"
	"errors"
	"time"
)

// Operation is a unit of work executed under retry.
type Operation func(ctx context.Context) (interface{}, error)

// RetryConfig tunes retry behavior.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RetryableErrors limits retries to the listed errors. Empty means every
	// error is retryable.
	RetryableErrors []error

	// RetryableChecker overrides RetryableErrors when set.
	RetryableChecker func(error) bool
}

// DefaultRetryConfig returns the retry tuning used when the caller has no
// opinion: three attempts with 100ms initial back-off capped at 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Backoff computes the exponential back-off delay for the given number of
// consecutive failures: base * 2^failures, capped at max when max is positive.
func Backoff(base time.Duration, failures int, max time.Duration) time.Duration {
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

// Retry executes op until it succeeds, the attempt budget is exhausted, the
// error is not retryable, or the context is done. The last error is returned.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(config.InitialBackoff, attempt-1, config.MaxBackoff)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if !config.retryable(err) {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (c RetryConfig) retryable(err error) bool {
	if c.RetryableChecker != nil {
		return c.RetryableChecker(err)
	}
	if len(c.RetryableErrors) == 0 {
		return true
	}
	for _, candidate := range c.RetryableErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
