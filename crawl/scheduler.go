package crawl

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// Scheduler starts a crawl cycle at a fixed interval.
type Scheduler struct {
	Service  autotrack.CrawlService
	Interval time.Duration
	Logger   *slog.Logger
}

// Run starts a cycle every Interval until ctx is canceled. A tick that finds
// a cycle still running is skipped. Run returns nil immediately when Interval
// is not positive.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return nil
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := s.Service.Start(ctx)
			switch autotrack.ErrorCode(err) {
			case "":
				logger.Info("scheduled crawl cycle started")
			case autotrack.ECONFLICT:
				logger.Info("scheduled crawl cycle skipped", "reason", autotrack.ErrorMessage(err))
			default:
				logger.Error("start scheduled crawl cycle", "err", err)
			}
		}
	}
}
