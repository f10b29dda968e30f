package mock

import (
	"context"

	"github.com/fwojciec/autotrack"
)

var (
	_ autotrack.PageArchive  = (*PageArchive)(nil)
	_ autotrack.PageArchiver = (*PageArchiver)(nil)
)

// PageArchive is a mock implementation of autotrack.PageArchive.
type PageArchive struct {
	SavePageFn func(ctx context.Context, n int, pageURL, content string) error
	CommitFn   func() error
	AbortFn    func() error
}

func (a *PageArchive) SavePage(ctx context.Context, n int, pageURL, content string) error {
	return a.SavePageFn(ctx, n, pageURL, content)
}

func (a *PageArchive) Commit() error {
	return a.CommitFn()
}

func (a *PageArchive) Abort() error {
	return a.AbortFn()
}

// PageArchiver is a mock implementation of autotrack.PageArchiver.
type PageArchiver struct {
	OpenArchiveFn func(ctx context.Context, runID string) (autotrack.PageArchive, error)
}

func (a *PageArchiver) OpenArchive(ctx context.Context, runID string) (autotrack.PageArchive, error) {
	return a.OpenArchiveFn(ctx, runID)
}
