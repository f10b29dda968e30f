package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// Ensure LoggingPageFetcher implements autotrack.PageFetcher.
var _ autotrack.PageFetcher = (*LoggingPageFetcher)(nil)

// LoggingPageFetcher wraps a PageFetcher with per-page logging.
type LoggingPageFetcher struct {
	next   autotrack.PageFetcher
	logger *slog.Logger
}

// NewLoggingPageFetcher creates a new LoggingPageFetcher.
func NewLoggingPageFetcher(next autotrack.PageFetcher, logger *slog.Logger) *LoggingPageFetcher {
	return &LoggingPageFetcher{next: next, logger: logger}
}

// FetchPage logs the page being fetched and delegates to the wrapped fetcher.
func (f *LoggingPageFetcher) FetchPage(ctx context.Context, n int, timeout time.Duration) (html string, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch page",
			"page", n,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchPage(ctx, n, timeout)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingPageFetcher) Close() error {
	return f.next.Close()
}
