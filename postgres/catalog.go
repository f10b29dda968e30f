package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Compile-time interface verification.
var (
	_ autotrack.Catalog   = (*Catalog)(nil)
	_ autotrack.CatalogTx = (*Tx)(nil)
)

// Catalog implements autotrack.Catalog using PostgreSQL.
// Transactions run at READ COMMITTED, so readers never observe a batch
// before it is committed.
type Catalog struct {
	db *DB
}

// NewCatalog creates a new Catalog.
func NewCatalog(db *DB) *Catalog {
	return &Catalog{db: db}
}

// BeginTx starts a catalog transaction.
func (c *Catalog) BeginTx(ctx context.Context) (autotrack.CatalogTx, error) {
	tx, err := c.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx implements autotrack.CatalogTx on top of a pgx transaction.
// Every write runs inside a nested transaction (a savepoint) so a failed
// write leaves no trace while the surrounding transaction stays usable.
type Tx struct {
	tx pgx.Tx
}

// FindVehicleByExternalID retrieves a vehicle by its external identifier.
func (tx *Tx) FindVehicleByExternalID(ctx context.Context, externalID string) (*autotrack.Vehicle, error) {
	v, err := scanVehicle(tx.tx.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE external_id = $1`, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
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
	return queryVehicles(ctx, tx.tx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE status = ANY($1) ORDER BY id`,
		statusStrings(statuses))
}

// CreateVehicle inserts a vehicle and its added history entry.
func (tx *Tx) CreateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	if err := v.Validate(); err != nil {
		return err
	}

	var id int64
	err := tx.savepoint(ctx, func(sp pgx.Tx) error {
		err := sp.QueryRow(ctx, `
			INSERT INTO vehicles (external_id, title, brand, model, year, price, mileage, fuel_type,
				transmission, location, url, status, first_seen, last_seen, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id
		`, v.ExternalID, v.Title, v.Brand, v.Model, v.Year, v.Price, v.Mileage, v.FuelType,
			v.Transmission, v.Location, v.URL, string(v.Status),
			v.FirstSeen.UTC(), v.LastSeen.UTC(), v.CreatedAt.UTC(), v.UpdatedAt.UTC()).Scan(&id)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return autotrack.Errorf(autotrack.ECONFLICT, "vehicle %q already exists", v.ExternalID)
		}
		if err != nil {
			return err
		}

		return appendHistory(ctx, sp, id, autotrack.ActionAdded, changes, v.CreatedAt)
	})
	if err != nil {
		return err
	}

	v.ID = id
	return nil
}

// UpdateVehicle persists tracked fields and sighting timestamps, appending an
// updated history entry when changes is not empty.
func (tx *Tx) UpdateVehicle(ctx context.Context, v *autotrack.Vehicle, changes autotrack.Changes) error {
	if err := v.Validate(); err != nil {
		return err
	}

	return tx.savepoint(ctx, func(sp pgx.Tx) error {
		tag, err := sp.Exec(ctx, `
			UPDATE vehicles
			SET title = $1, brand = $2, model = $3, year = $4, price = $5, mileage = $6, fuel_type = $7,
				transmission = $8, location = $9, last_seen = $10, updated_at = $11
			WHERE id = $12
		`, v.Title, v.Brand, v.Model, v.Year, v.Price, v.Mileage, v.FuelType,
			v.Transmission, v.Location, v.LastSeen.UTC(), v.UpdatedAt.UTC(), v.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
		}

		if len(changes) == 0 {
			return nil
		}
		return appendHistory(ctx, sp, v.ID, autotrack.ActionUpdated, changes, v.UpdatedAt)
	})
}

// UpdateVehicleStatus moves a vehicle to status and records the transition.
func (tx *Tx) UpdateVehicleStatus(ctx context.Context, v *autotrack.Vehicle, status autotrack.Status, at time.Time) error {
	if err := status.Validate(); err != nil {
		return err
	}

	from := v.Status
	err := tx.savepoint(ctx, func(sp pgx.Tx) error {
		tag, err := sp.Exec(ctx, `
			UPDATE vehicles SET status = $1, updated_at = $2 WHERE id = $3
		`, string(status), at.UTC(), v.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
		}
		return appendHistory(ctx, sp, v.ID, autotrack.ActionForStatus(status), autotrack.StatusChange(from, status), at)
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
	return tx.tx.Commit(context.Background())
}

// Rollback aborts the transaction. Rollback after Commit is a no-op.
func (tx *Tx) Rollback() error {
	if err := tx.tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// savepoint runs fn inside a nested transaction, rolling it back if fn fails.
func (tx *Tx) savepoint(ctx context.Context, fn func(sp pgx.Tx) error) error {
	sp, err := tx.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to roll back savepoint: %w", rbErr))
		}
		return err
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// appendHistory inserts a history entry.
func appendHistory(ctx context.Context, q queryer, vehicleID int64, action autotrack.Action, changes autotrack.Changes, at time.Time) error {
	encoded, err := encodeChanges(changes)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO vehicle_history (vehicle_id, action, changes, timestamp)
		VALUES ($1, $2, $3, $4)
	`, vehicleID, string(action), encoded, at.UTC())
	return err
}
