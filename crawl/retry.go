package crawl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// PageFunc fetches listing page n.
type PageFunc func(ctx context.Context, n int) (string, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetry attempts to fetch page n, retrying once per entry in delays
// and waiting that long before each retry. The logger, if not nil, records
// every retry. The final error is reported as a *autotrack.FetchError.
func FetchWithRetry(ctx context.Context, n int, fetch PageFunc, logger *slog.Logger, delays []time.Duration) (string, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		content, err := fetch(ctx, n)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}

		if ctx.Err() != nil {
			break
		}

		if logger != nil {
			logger.Warn("retry page fetch", "page", n, "attempt", attempt+2, "err", err)
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", asFetchError(n, ctx.Err())
		case <-timer.C:
		}
	}

	return "", asFetchError(n, lastErr)
}

// asFetchError wraps err in a FetchError for page n unless it already is one.
func asFetchError(n int, err error) error {
	var fetchErr *autotrack.FetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	return &autotrack.FetchError{Page: n, Err: err}
}
