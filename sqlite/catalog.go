package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var (
	_ autotrack.Catalog   = (*Catalog)(nil)
	_ autotrack.CatalogTx = (*Tx)(nil)
)

// Catalog implements autotrack.Catalog using SQLite.
type Catalog struct {
	db *DB
}

// NewCatalog creates a new Catalog.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// BeginTx starts a catalog transaction.
func (c *Catalog) BeginTx(ctx context.Context) (autotrack.CatalogTx, error) {
	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements autotrack.CatalogTx on top of a SQLite transaction.
// Every write runs inside a savepoint so a failed write leaves no trace
// while the surrounding transaction stays open.
type Tx struct {
	tx *sql.Tx
}

// FindVehicleByExternalID retrieves a vehicle by its external identifier.
func (tx *Tx) FindVehicleByExternalID(ctx context.Context, externalID string) (*autotrack.Vehicle, error) {
	v, err := scanVehicle(tx.tx.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE external_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle %q not found", externalID)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindVehiclesByStatus retrieves all vehicles in any of the given statuses.
func (tx *Tx) FindVehiclesByStatus(ctx context.Context, statuses ...autotrack.Status) ([]*autotrack.Vehicle, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return queryVehicles(ctx, tx.tx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE status IN (`+placeholders(len(statuses))+`) ORDER BY id`,
		args...)
}

// CreateVehicle inserts a vehicle and its added history entry.
func (tx *Tx) CreateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	if err := v.Validate(); err != nil {
		return err
	}

	return tx.savepoint(ctx, func() error {
		result, err := tx.tx.ExecContext(ctx, `
			INSERT INTO vehicles (external_id, title, brand, model, year, price, mileage, fuel_type,
				transmission, location, url, status, first_seen, last_seen, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, v.ExternalID, v.Title, v.Brand, v.Model, v.Year, v.Price, v.Mileage, v.FuelType,
			v.Transmission, v.Location, v.URL, string(v.Status),
			formatTime(v.FirstSeen), formatTime(v.LastSeen), formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
		if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) {
			return autotrack.Errorf(autotrack.ECONFLICT, "vehicle %q already exists", v.ExternalID)
		}
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		if err := tx.appendHistory(ctx, id, autotrack.ActionAdded, changes, v.CreatedAt); err != nil {
			return err
		}

		v.ID = id
		return nil
	})
}

// UpdateVehicle persists tracked fields and sighting timestamps, appending an
// updated history entry when changes is not empty.
func (tx *Tx) UpdateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	if err := v.Validate(); err != nil {
		return err
	}

	return tx.savepoint(ctx, func() error {
		result, err := tx.tx.ExecContext(ctx, `
			UPDATE vehicles
			SET title = ?, brand = ?, model = ?, year = ?, price = ?, mileage = ?, fuel_type = ?,
				transmission = ?, location = ?, last_seen = ?, updated_at = ?
			WHERE id = ?
		`, v.Title, v.Brand, v.Model, v.Year, v.Price, v.Mileage, v.FuelType,
			v.Transmission, v.Location, formatTime(v.LastSeen), formatTime(v.UpdatedAt), v.ID)
		if err != nil {
			return err
		}
		if err := requireOneRow(result); err != nil {
			return err
		}

		if len(changes) == 0 {
			return nil
		}
		return tx.appendHistory(ctx, v.ID, autotrack.ActionUpdated, changes, v.UpdatedAt)
	})
}

// UpdateVehicleStatus moves a vehicle to status and records the transition.
func (tx *Tx) UpdateVehicleStatus(ctx context.Context, v *autotrack.Vehicle, status autotrack.Status, at time.Time) error {
	if err := status.Validate(); err != nil {
		return err
	}

	from := v.Status
	err := tx.savepoint(ctx, func() error {
		result, err := tx.tx.ExecContext(ctx, `
			UPDATE vehicles SET status = ?, updated_at = ? WHERE id = ?
		`, string(status), formatTime(at), v.ID)
		if err != nil {
			return err
		}
		if err := requireOneRow(result); err != nil {
			return err
		}
		return tx.appendHistory(ctx, v.ID, autotrack.ActionForStatus(status), autotrack.StatusChange(from, status), at)
	})
	if err != nil {
		return err
	}

	v.Status = status
	v.UpdatedAt = at
	return nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

// Rollback aborts the transaction. Rollback after Commit is a no-op.
func (tx *Tx) Rollback() error {
	if err := tx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// appendHistory inserts a history entry.
func (tx *Tx) appendHistory(ctx context.Context, vehicleID int64, action autotrack.Action, changes autotrack.Changes, at time.Time) error {
	encoded, err := encodeChanges(changes)
	if err != nil {
		return err
	}

	_, err = tx.tx.ExecContext(ctx, `
		INSERT INTO vehicle_history (vehicle_id, action, changes, timestamp)
		VALUES (?, ?, ?, ?)
	`, vehicleID, string(action), encoded, formatTime(at))
	return err
}

// savepoint runs fn inside a savepoint, rolling back to it if fn fails.
func (tx *Tx) savepoint(ctx context.Context, fn func() error) error {
	if _, err := tx.tx.ExecContext(ctx, "SAVEPOINT catalog_write"); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := tx.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT catalog_write"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back savepoint: %w", rbErr))
		}
		if _, relErr := tx.tx.ExecContext(ctx, "RELEASE SAVEPOINT catalog_write"); relErr != nil {
			return errors.Join(err, fmt.Errorf("failed to release savepoint: %w", relErr))
		}
		return err
	}

	if _, err := tx.tx.ExecContext(ctx, "RELEASE SAVEPOINT catalog_write"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// requireOneRow returns ENOTFOUND if the statement affected no rows.
func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
	}
	return nil
}
