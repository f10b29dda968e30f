package mock

import (
	"context"

	"github.com/fwojciec/autotrack"
)

var _ autotrack.Reconciler = (*Reconciler)(nil)

// Reconciler is a mock implementation of autotrack.Reconciler.
type Reconciler struct {
	ReconcileFn func(ctx context.Context, batch []*autotrack.Listing) (*autotrack.ReconcileResult, error)
}

func (r *Reconciler) Reconcile(ctx context.Context, batch []*autotrack.Listing) (*autotrack.ReconcileResult, error) {
	return r.ReconcileFn(ctx, batch)
}
