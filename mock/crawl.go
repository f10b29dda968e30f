package mock

import (
	"context"

	"github.com/fwojciec/autotrack"
)

var _ autotrack.CrawlService = (*CrawlService)(nil)

// CrawlService is a mock implementation of autotrack.CrawlService.
type CrawlService struct {
	StartFn  func(ctx context.Context) error
	StatusFn func() autotrack.RunStatus
}

func (s *CrawlService) Start(ctx context.Context) error {
	return s.StartFn(ctx)
}

func (s *CrawlService) Status() autotrack.RunStatus {
	return s.StatusFn()
}
