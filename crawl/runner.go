package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.CrawlService = (*Runner)(nil)

// CycleFunc runs one crawl cycle.
type CycleFunc func(ctx context.Context) *autotrack.CycleResult

// Runner runs at most one crawl cycle at a time in the background and keeps
// the outcome of the last finished cycle.
type Runner struct {
	cycle  CycleFunc
	logger *slog.Logger

	running atomic.Bool
	last    atomic.Pointer[autotrack.CycleResult]
	wg      sync.WaitGroup

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner creates a Runner executing cycle.
func NewRunner(cycle CycleFunc, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{cycle: cycle, logger: logger}
}

// Start launches a cycle on its own goroutine. The cycle does not inherit
// cancellation from ctx, so it always runs to completion.
// Returns ECONFLICT if a cycle is already running.
func (r *Runner) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return autotrack.Errorf(autotrack.ECONFLICT, "crawl cycle already running")
	}

	r.wg.Add(1)
	go r.run(context.WithoutCancel(ctx))
	return nil
}

// Run runs a cycle on the calling goroutine and returns its result.
// Returns ECONFLICT if a cycle is already running.
func (r *Runner) Run(ctx context.Context) (*autotrack.CycleResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, autotrack.Errorf(autotrack.ECONFLICT, "crawl cycle already running")
	}

	r.wg.Add(1)
	return r.run(ctx), nil
}

func (r *Runner) run(ctx context.Context) (result *autotrack.CycleResult) {
	startedAt := r.now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("crawl cycle panicked", "panic", p)
			result = &autotrack.CycleResult{
				Message:    fmt.Sprintf("crawl cycle panicked: %v", p),
				StartedAt:  startedAt,
				FinishedAt: r.now(),
			}
		}
		r.last.Store(result)
		r.running.Store(false)
		r.wg.Done()
	}()

	return r.cycle(ctx)
}

// Status returns the current run state. It never waits for a running cycle.
func (r *Runner) Status() autotrack.RunStatus {
	status := autotrack.RunStatus{Running: r.running.Load()}
	if last := r.last.Load(); last != nil {
		finished := last.FinishedAt
		status.LastRun = &finished
		status.LastResult = last
	}
	return status
}

// Wait blocks until the running cycle, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
