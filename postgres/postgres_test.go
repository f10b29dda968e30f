package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/fwojciec/autotrack/postgres"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockDB creates a DB backed by pgxmock for unit testing.
func newMockDB(t *testing.T) (*postgres.DB, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return postgres.NewDBWithPool(mock), mock
}

var vehicleColumnNames = []string{
	"id", "external_id", "title", "brand", "model", "year", "price", "mileage", "fuel_type",
	"transmission", "location", "url", "status", "first_seen", "last_seen", "created_at", "updated_at",
}

// vehicleRows returns mock rows for the given vehicles.
func vehicleRows(vehicles ...*autotrack.Vehicle) *pgxmock.Rows {
	rows := pgxmock.NewRows(vehicleColumnNames)
	for _, v := range vehicles {
		rows.AddRow(v.ID, v.ExternalID, v.Title, v.Brand, v.Model, v.Year, v.Price, v.Mileage,
			v.FuelType, v.Transmission, v.Location, v.URL, string(v.Status),
			v.FirstSeen, v.LastSeen, v.CreatedAt, v.UpdatedAt)
	}
	return rows
}

// civic returns a stored active vehicle first seen at now.
func civic(id int64, now time.Time) *autotrack.Vehicle {
	return &autotrack.Vehicle{
		ID:         id,
		ExternalID: "51234567",
		Title:      "Honda Civic EXL 2.0",
		Brand:      ptr("Honda"),
		Model:      ptr("Civic"),
		Year:       ptr(2020),
		Price:      ptr("R$ 80.000"),
		Mileage:    ptr("45.000 km"),
		URL:        "https://www.webmotors.com.br/comprar/honda/civic/51234567",
		Status:     autotrack.StatusActive,
		FirstSeen:  now,
		LastSeen:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestDB_Migrate(t *testing.T) {
	t.Parallel()

	t.Run("creates schema under advisory lock", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS vehicles`).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectCommit()

		require.NoError(t, db.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("schema includes append-only history trigger", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`(?s)BEFORE UPDATE OR DELETE ON vehicle_history.*EXECUTE FUNCTION vehicle_history_append_only`).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectCommit()

		require.NoError(t, db.Migrate(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on schema failure", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS vehicles`).
			WillReturnError(errors.New("permission denied for schema public"))
		mock.ExpectRollback()

		err := db.Migrate(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create schema")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid connection string", func(t *testing.T) {
		t.Parallel()

		db := postgres.NewDB("postgres://user@localhost:notaport/autotrack")
		err := db.Open(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse connection string")
		assert.NoError(t, db.Close())
	})
}
