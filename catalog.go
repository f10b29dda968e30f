package autotrack

import (
	"context"
	"time"
)

// Catalog provides transactional write access to vehicles and their history.
// The reconciliation engine is its only writer.
type Catalog interface {
	// BeginTx starts a transaction. Nothing written through the transaction is
	// visible to readers until Commit succeeds.
	BeginTx(ctx context.Context) (CatalogTx, error)
}

// CatalogTx is a catalog transaction. Each write method is atomic on its own:
// if it returns an error neither the vehicle change nor its history entry is
// kept, and the transaction remains usable for further writes.
type CatalogTx interface {
	// FindVehicleByExternalID retrieves a vehicle by its external identifier.
	// Returns ENOTFOUND if vehicle does not exist.
	FindVehicleByExternalID(ctx context.Context, externalID string) (*Vehicle, error)

	// FindVehiclesByStatus retrieves all vehicles in any of the given statuses.
	FindVehiclesByStatus(ctx context.Context, statuses ...Status) ([]*Vehicle, error)

	// CreateVehicle inserts a vehicle and its added history entry.
	// Sets the vehicle ID. Returns ECONFLICT if the external ID already exists.
	CreateVehicle(ctx context.Context, v *Vehicle, changes Changes) error

	// UpdateVehicle persists the vehicle's tracked fields, LastSeen and
	// UpdatedAt. An updated history entry is appended only if changes is not empty.
	UpdateVehicle(ctx context.Context, v *Vehicle, changes Changes) error

	// UpdateVehicleStatus moves the vehicle to status, refreshes UpdatedAt to
	// at, and appends a history entry recording the transition.
	UpdateVehicleStatus(ctx context.Context, v *Vehicle, status Status, at time.Time) error

	// Commit makes all writes durable.
	Commit() error

	// Rollback discards all writes. Rollback after Commit is a no-op.
	Rollback() error
}

// ActionForStatus returns the history action recorded for a transition to status.
func ActionForStatus(status Status) Action {
	if status == StatusRemoved {
		return ActionRemoved
	}
	return ActionUpdated
}
