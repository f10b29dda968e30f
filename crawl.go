package autotrack

import (
	"context"
	"time"
)

// ReconcileResult counts what a reconciliation did to the catalog.
type ReconcileResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
	Failed   int `json:"failed"`
}

// Reconciler applies a batch of freshly observed listings to the catalog.
type Reconciler interface {
	// Reconcile inserts new listings, updates changed ones, and marks active
	// vehicles missing from the batch as removed. Either every change of the
	// batch is committed or none is. An empty batch changes nothing.
	Reconcile(ctx context.Context, batch []*Listing) (*ReconcileResult, error)
}

// CycleResult is the outcome of one crawl cycle.
type CycleResult struct {
	RunID      string    `json:"run_id"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Pages      int       `json:"pages"`
	Listings   int       `json:"listings"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunStatus is a snapshot of the crawl run state.
type RunStatus struct {
	Running    bool         `json:"is_running"`
	LastRun    *time.Time   `json:"last_run"`
	LastResult *CycleResult `json:"last_result"`
}

// CrawlService starts crawl cycles in the background and reports their state.
type CrawlService interface {
	// Start launches a crawl cycle and returns without waiting for it.
	// Returns ECONFLICT if a cycle is already running.
	Start(ctx context.Context) error

	// Status returns the current run state.
	Status() RunStatus
}
