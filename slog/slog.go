// Package slog provides structured logging decorators for autotrack services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// Ensure LoggingReconciler implements autotrack.Reconciler.
var _ autotrack.Reconciler = (*LoggingReconciler)(nil)

// LoggingReconciler wraps a Reconciler with logging of batch outcomes.
type LoggingReconciler struct {
	next   autotrack.Reconciler
	logger *slog.Logger
}

// NewLoggingReconciler creates a new LoggingReconciler.
func NewLoggingReconciler(next autotrack.Reconciler, logger *slog.Logger) *LoggingReconciler {
	return &LoggingReconciler{next: next, logger: logger}
}

// Reconcile logs the batch size, resulting counts and duration.
func (r *LoggingReconciler) Reconcile(ctx context.Context, batch []*autotrack.Listing) (result *autotrack.ReconcileResult, err error) {
	defer func(begin time.Time) {
		attrs := []any{
			"listings", len(batch),
			"duration", time.Since(begin),
		}
		if result != nil {
			attrs = append(attrs,
				"inserted", result.Inserted,
				"updated", result.Updated,
				"removed", result.Removed,
				"failed", result.Failed,
			)
		}
		if err != nil {
			r.logger.Error("reconcile", append(attrs, "err", err)...)
			return
		}
		r.logger.Info("reconcile", attrs...)
	}(time.Now())
	return r.next.Reconcile(ctx, batch)
}

// Ensure LoggingCrawlService implements autotrack.CrawlService.
var _ autotrack.CrawlService = (*LoggingCrawlService)(nil)

// LoggingCrawlService wraps a CrawlService with logging of start requests.
type LoggingCrawlService struct {
	next   autotrack.CrawlService
	logger *slog.Logger
}

// NewLoggingCrawlService creates a new LoggingCrawlService.
func NewLoggingCrawlService(next autotrack.CrawlService, logger *slog.Logger) *LoggingCrawlService {
	return &LoggingCrawlService{next: next, logger: logger}
}

// Start logs whether the crawl cycle was started or rejected.
func (s *LoggingCrawlService) Start(ctx context.Context) error {
	err := s.next.Start(ctx)
	switch autotrack.ErrorCode(err) {
	case "":
		s.logger.Info("crawl start", "started", true)
	case autotrack.ECONFLICT:
		s.logger.Info("crawl start", "started", false, "reason", autotrack.ErrorMessage(err))
	default:
		s.logger.Error("crawl start", "started", false, "err", err)
	}
	return err
}

// Status delegates to the wrapped service.
func (s *LoggingCrawlService) Status() autotrack.RunStatus {
	return s.next.Status()
}
