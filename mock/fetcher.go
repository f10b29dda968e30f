package mock

import (
	"context"
	"time"

	"github.com/fwojciec/autotrack"
)

var (
	_ autotrack.PageFetcher       = (*PageFetcher)(nil)
	_ autotrack.PageFetcherOpener = (*PageFetcherOpener)(nil)
)

// PageFetcher is a mock implementation of autotrack.PageFetcher.
type PageFetcher struct {
	FetchPageFn func(ctx context.Context, n int, timeout time.Duration) (string, error)
	CloseFn     func() error
}

func (f *PageFetcher) FetchPage(ctx context.Context, n int, timeout time.Duration) (string, error) {
	return f.FetchPageFn(ctx, n, timeout)
}

func (f *PageFetcher) Close() error {
	return f.CloseFn()
}

// PageFetcherOpener is a mock implementation of autotrack.PageFetcherOpener.
type PageFetcherOpener struct {
	OpenFn func(ctx context.Context) (autotrack.PageFetcher, error)
}

func (o *PageFetcherOpener) Open(ctx context.Context) (autotrack.PageFetcher, error) {
	return o.OpenFn(ctx)
}
