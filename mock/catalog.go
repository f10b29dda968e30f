package mock

import (
	"context"
	"time"

	"github.com/fwojciec/autotrack"
)

var (
	_ autotrack.Catalog   = (*Catalog)(nil)
	_ autotrack.CatalogTx = (*CatalogTx)(nil)
)

// Catalog is a mock implementation of autotrack.Catalog.
type Catalog struct {
	BeginTxFn func(ctx context.Context) (autotrack.CatalogTx, error)
}

func (c *Catalog) BeginTx(ctx context.Context) (autotrack.CatalogTx, error) {
	return c.BeginTxFn(ctx)
}

// CatalogTx is a mock implementation of autotrack.CatalogTx.
type CatalogTx struct {
	FindVehicleByExternalIDFn func(ctx context.Context, externalID string) (*autotrack.Vehicle, error)
	FindVehiclesByStatusFn    func(ctx context.Context, statuses ...autotrack.Status) ([]*autotrack.Vehicle, error)
	CreateVehicleFn           func(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error
	UpdateVehicleFn           func(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error
	UpdateVehicleStatusFn     func(ctx context.Context, v *autotrack.Vehicle, status autotrack.Status, at time.Time) error
	CommitFn                  func() error
	RollbackFn                func() error
}

func (tx *CatalogTx) FindVehicleByExternalID(ctx context.Context, externalID string) (*autotrack.Vehicle, error) {
	return tx.FindVehicleByExternalIDFn(ctx, externalID)
}

func (tx *CatalogTx) FindVehiclesByStatus(ctx context.Context, statuses ...autotrack.Status) ([]*autotrack.Vehicle, error) {
	return tx.FindVehiclesByStatusFn(ctx, statuses...)
}

func (tx *CatalogTx) CreateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	return tx.CreateVehicleFn(ctx, v, changes)
}

func (tx *CatalogTx) UpdateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	return tx.UpdateVehicleFn(ctx, v, changes)
}

func (tx *CatalogTx) UpdateVehicleStatus(ctx context.Context, v *autotrack.Vehicle, status autotrack.Status, at time.Time) error {
	return tx.UpdateVehicleStatusFn(ctx, v, status, at)
}

func (tx *CatalogTx) Commit() error {
	return tx.CommitFn()
}

func (tx *CatalogTx) Rollback() error {
	return tx.RollbackFn()
}
