// Package reconcile applies batches of observed listings to the vehicle catalog.
// It decides per listing whether it is new, changed, or unchanged, marks
// vehicles missing from the batch as removed, and keeps the change history
// consistent with catalog state.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.Reconciler = (*Engine)(nil)

// Engine reconciles listing batches against a Catalog.
// Engine does not guard against concurrent use; callers must not run two
// reconciliations at once (see crawl.Runner).
type Engine struct {
	Catalog autotrack.Catalog
	Logger  *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewEngine creates a new Engine writing to catalog.
func NewEngine(catalog autotrack.Catalog, logger *slog.Logger) *Engine {
	return &Engine{Catalog: catalog, Logger: logger}
}

// Reconcile applies batch to the catalog in a single transaction.
//
// Listings that fail to apply are logged, counted as failed, and skipped.
// If the transaction cannot be committed nothing is kept and a zero result is
// returned together with the error.
func (e *Engine) Reconcile(ctx context.Context, batch []*autotrack.Listing) (*autotrack.ReconcileResult, error) {
	logger := e.logger()
	now := e.now()

	tx, err := e.Catalog.BeginTx(ctx)
	if err != nil {
		return &autotrack.ReconcileResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var result autotrack.ReconcileResult
	seen := make(map[string]struct{}, len(batch))
	var valid int

	for _, listing := range batch {
		if listing == nil {
			continue
		}
		if listing.ExternalID != "" {
			seen[listing.ExternalID] = struct{}{}
		}
		if listing.Validate() == nil {
			valid++
		}

		outcome, err := e.apply(ctx, tx, listing, now)
		if err != nil {
			logger.Error("reconcile listing",
				"external_id", listing.ExternalID,
				"url", listing.URL,
				"err", err,
			)
			result.Failed++
			continue
		}
		switch outcome {
		case outcomeInserted:
			result.Inserted++
		case outcomeUpdated:
			result.Updated++
		}
	}

	// A batch without a single usable listing says nothing about which
	// listings disappeared.
	if valid > 0 && len(seen) > 0 {
		removed, failed, err := e.removeMissing(ctx, tx, seen, now)
		if err != nil {
			return &autotrack.ReconcileResult{}, err
		}
		result.Removed = removed
		result.Failed += failed
	}

	if err := tx.Commit(); err != nil {
		return &autotrack.ReconcileResult{}, fmt.Errorf("commit reconciliation: %w", err)
	}

	return &result, nil
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeInserted
	outcomeUpdated
)

// apply inserts or updates a single listing.
func (e *Engine) apply(ctx context.Context, tx autotrack.CatalogTx, listing *autotrack.Listing, now time.Time) (outcome, error) {
	if err := listing.Validate(); err != nil {
		return outcomeUnchanged, err
	}

	existing, err := tx.FindVehicleByExternalID(ctx, listing.ExternalID)
	if autotrack.ErrorCode(err) == autotrack.ENOTFOUND {
		v := autotrack.NewVehicle(listing, now)
		if err := tx.CreateVehicle(ctx, v, autotrack.ListingChanges(listing)); err != nil {
			return outcomeUnchanged, err
		}
		return outcomeInserted, nil
	}
	if err != nil {
		return outcomeUnchanged, err
	}

	changes := Diff(existing, listing)
	updated := *existing
	for field := range changes {
		updated.CopyField(listing, field)
	}
	updated.LastSeen = now
	updated.UpdatedAt = now

	if err := tx.UpdateVehicle(ctx, &updated, changes); err != nil {
		return outcomeUnchanged, err
	}
	if len(changes) == 0 {
		return outcomeUnchanged, nil
	}
	return outcomeUpdated, nil
}

// removeMissing marks every active vehicle absent from seen as removed.
// Returns the number of removed vehicles and of vehicles that failed to update.
func (e *Engine) removeMissing(ctx context.Context, tx autotrack.CatalogTx, seen map[string]struct{}, now time.Time) (int, int, error) {
	active, err := tx.FindVehiclesByStatus(ctx, autotrack.StatusActive)
	if err != nil {
		return 0, 0, fmt.Errorf("find active vehicles: %w", err)
	}

	var removed, failed int
	for _, v := range active {
		if _, ok := seen[v.ExternalID]; ok {
			continue
		}
		if err := tx.UpdateVehicleStatus(ctx, v, autotrack.StatusRemoved, now); err != nil {
			e.logger().Error("mark vehicle removed",
				"external_id", v.ExternalID,
				"vehicle_id", v.ID,
				"err", err,
			)
			failed++
			continue
		}
		removed++
	}

	return removed, failed, nil
}

// Diff returns the tracked fields whose value differs between the vehicle and
// the listing. Status is not a listing field, so terminal vehicles that
// reappear keep their status.
func Diff(v *autotrack.Vehicle, l *autotrack.Listing) autotrack.Changes {
	changes := autotrack.Changes{}
	for _, field := range autotrack.TrackedFields {
		oldValue, newValue := v.Value(field), l.Value(field)
		if equal(oldValue, newValue) {
			continue
		}
		changes[field] = autotrack.Change{Old: oldValue, New: newValue}
	}
	return changes
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// now returns the current time at the microsecond precision the catalog stores.
func (e *Engine) now() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().UTC().Truncate(time.Microsecond)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
