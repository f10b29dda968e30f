package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/fwojciec/autotrack/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// beginTx opens a catalog transaction against the mock.
func beginTx(t *testing.T, mock pgxmock.PgxPoolIface, db *postgres.DB) autotrack.CatalogTx {
	t.Helper()

	mock.ExpectBegin()
	tx, err := postgres.NewCatalog(db).BeginTx(context.Background())
	require.NoError(t, err)
	return tx
}

// anyArgs returns n argument matchers accepting anything.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCatalog_BeginTx(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := postgres.NewCatalog(db).BeginTx(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_CreateVehicle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inserts vehicle and added history", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		v := civic(0, now)
		insertArgs := anyArgs(16)
		insertArgs[0] = "51234567"
		insertArgs[11] = "active"

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO vehicles`).
			WithArgs(insertArgs...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectExec(`INSERT INTO vehicle_history`).
			WithArgs(int64(7), "added", `{"title":{"new":"Honda Civic EXL 2.0"}}`, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()
		mock.ExpectCommit()

		title := "Honda Civic EXL 2.0"
		err := tx.CreateVehicle(context.Background(), v, autotrack.Changes{
			autotrack.FieldTitle: {New: &title},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), v.ID)

		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ECONFLICT on duplicate external ID", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO vehicles`).
			WithArgs(anyArgs(16)...).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
		mock.ExpectRollback()
		mock.ExpectRollback()

		v := civic(0, now)
		err := tx.CreateVehicle(context.Background(), v, nil)
		assert.Equal(t, autotrack.ECONFLICT, autotrack.ErrorCode(err))
		assert.Zero(t, v.ID)

		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back savepoint when history insert fails", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO vehicles`).
			WithArgs(anyArgs(16)...).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectExec(`INSERT INTO vehicle_history`).
			WithArgs(anyArgs(4)...).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		v := civic(0, now)
		err := tx.CreateVehicle(context.Background(), v, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Zero(t, v.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns EINVALID without touching the database", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		v := civic(0, now)
		v.Title = ""
		err := tx.CreateVehicle(context.Background(), v, nil)
		assert.Equal(t, autotrack.EINVALID, autotrack.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTx_FindVehicleByExternalID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns vehicle", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		want := civic(3, now)
		mock.ExpectQuery(`FROM vehicles WHERE external_id = \$1`).
			WithArgs("51234567").
			WillReturnRows(vehicleRows(want))

		got, err := tx.FindVehicleByExternalID(context.Background(), "51234567")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ENOTFOUND when missing", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectQuery(`FROM vehicles WHERE external_id = \$1`).
			WithArgs("404").
			WillReturnRows(pgxmock.NewRows(vehicleColumnNames))

		_, err := tx.FindVehicleByExternalID(context.Background(), "404")
		assert.Equal(t, autotrack.ENOTFOUND, autotrack.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTx_FindVehiclesByStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("filters by any of the statuses", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		first, second := civic(1, now), civic(2, now)
		second.ExternalID = "51234568"
		mock.ExpectQuery(`WHERE status = ANY\(\$1\) ORDER BY id`).
			WithArgs([]string{"active", "sold"}).
			WillReturnRows(vehicleRows(first, second))

		got, err := tx.FindVehiclesByStatus(context.Background(), autotrack.StatusActive, autotrack.StatusSold)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "51234568", got[1].ExternalID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nothing without statuses", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		got, err := tx.FindVehiclesByStatus(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTx_UpdateVehicle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	t.Run("updates fields and appends history", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		v := civic(5, now)
		v.Price = ptr("R$ 75.000")
		v.LastSeen, v.UpdatedAt = later, later

		updateArgs := anyArgs(12)
		updateArgs[4] = ptr("R$ 75.000")
		updateArgs[11] = int64(5)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles SET title = \$1`).
			WithArgs(updateArgs...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`INSERT INTO vehicle_history`).
			WithArgs(int64(5), "updated", `{"price":{"old":"R$ 80.000","new":"R$ 75.000"}}`, later).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := tx.UpdateVehicle(context.Background(), v, autotrack.Changes{
			autotrack.FieldPrice: {Old: ptr("R$ 80.000"), New: ptr("R$ 75.000")},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips history without changes", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles SET title = \$1`).
			WithArgs(anyArgs(12)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, tx.UpdateVehicle(context.Background(), civic(5, now), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ENOTFOUND when no row matches", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles SET title = \$1`).
			WithArgs(anyArgs(12)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := tx.UpdateVehicle(context.Background(), civic(99, now), nil)
		assert.Equal(t, autotrack.ENOTFOUND, autotrack.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTx_UpdateVehicleStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(2 * time.Hour)

	t.Run("records removal", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles SET status = \$1, updated_at = \$2 WHERE id = \$3`).
			WithArgs("removed", later, int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`INSERT INTO vehicle_history`).
			WithArgs(int64(5), "removed", `{"status":{"old":"active","new":"removed"}}`, later).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		v := civic(5, now)
		require.NoError(t, tx.UpdateVehicleStatus(context.Background(), v, autotrack.StatusRemoved, later))
		assert.Equal(t, autotrack.StatusRemoved, v.Status)
		assert.Equal(t, later, v.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("leaves vehicle unchanged on failure", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE vehicles SET status`).
			WithArgs(anyArgs(3)...).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		v := civic(5, now)
		err := tx.UpdateVehicleStatus(context.Background(), v, autotrack.StatusRemoved, later)
		require.Error(t, err)
		assert.Equal(t, autotrack.StatusActive, v.Status)
		assert.Equal(t, now, v.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		tx := beginTx(t, mock, db)

		err := tx.UpdateVehicleStatus(context.Background(), civic(5, now), autotrack.Status("archived"), later)
		assert.Equal(t, autotrack.EINVALID, autotrack.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
