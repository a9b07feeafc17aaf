package providers

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds exponential-backoff parameters for the retry
// decorator (C7). Grounded on lowkaihon-cli-coding-agent/llm/retry.go,
// the sibling repo in the pack that implements the identical concern
// (the teacher's own copy of this file was outside the retrieval
// snapshot, though its providers reference it by name).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches spec.md §7: up to 2 retries (3 attempts
// total) for ProviderRequestFailed.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// RetryDo runs fn, restarting it from scratch on any non-cancellation
// error except a non-retryable HTTPError (a 4xx other than 429), which
// is returned at once, using exponential backoff from cfg.BaseDelay
// (or the server's Retry-After, when longer). Cancellation
// (ctx.Err() != nil) propagates immediately without a retry attempt,
// per spec.md §5's CancellationRequested disposition.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, cfg.BaseDelay, cfg.MaxDelay)
			if httpErr := asHTTPError(lastErr); httpErr != nil && httpErr.RetryAfter > delay {
				delay = httpErr.RetryAfter
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if httpErr := asHTTPError(err); httpErr != nil && !httpErr.Retryable() {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	delay += time.Duration(rand.Intn(500)) * time.Millisecond
	if delay > max {
		delay = max
	}
	return delay
}
