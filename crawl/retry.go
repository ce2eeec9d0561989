package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/webintel"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc[T any] func(ctx context.Context, url string) (T, error)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// RetryDelays returns the first n default delays, doubling past the defaults.
func RetryDelays(n int) []time.Duration {
	delays := make([]time.Duration, 0, max(n, 0))
	d := time.Second
	for range n {
		delays = append(delays, d)
		d *= 2
	}
	return delays
}

// FetchWithRetryDelays attempts a fetch, retrying failures after each of the
// given delays. An empty slice disables retries. Cancellation of ctx and
// permanent failures (see retryable) are never retried.
// The logger function, if provided, is called for each retry attempt.
func FetchWithRetryDelays[T any](ctx context.Context, url string, fetch FetchFunc[T], logger LogFunc, delays []time.Duration) (T, error) {
	var zero T
	maxAttempts := len(delays) + 1 // 1 initial + N retries

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fetch(ctx, url)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 || errors.Is(err, context.Canceled) || !retryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		if logger != nil {
			logger("retry %s (attempt %d): %v", url, attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return zero, lastErr
}

// retryable reports whether another attempt could succeed. Client errors,
// non-HTML responses and invalid URLs fail the same way every time.
func retryable(err error) bool {
	switch webintel.ErrorCode(err) {
	case webintel.EFETCH, webintel.EINVALID, webintel.ENOTFOUND:
		return false
	}
	return true
}
