package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.VehicleService = (*VehicleService)(nil)

// queryer is implemented by both *DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const vehicleColumns = `id, external_id, title, brand, model, year, price, mileage, fuel_type,
	transmission, location, url, status, first_seen, last_seen, created_at, updated_at`

// VehicleService implements autotrack.VehicleService using SQLite.
type VehicleService struct {
	db *DB
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(db *DB) *VehicleService {
	return &VehicleService{db: db}
}

// FindVehicleByID retrieves a vehicle by ID.
func (s *VehicleService) FindVehicleByID(ctx context.Context, id int64) (*autotrack.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindVehicles retrieves vehicles matching the filter and the total count of matches.
func (s *VehicleService) FindVehicles(ctx context.Context, filter autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error) {
	where, args := vehicleWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vehicles"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	var query strings.Builder
	query.WriteString("SELECT " + vehicleColumns + " FROM vehicles" + where)

	switch filter.SortBy {
	case autotrack.SortByFirstSeen:
		query.WriteString(" ORDER BY first_seen DESC, id DESC")
	case autotrack.SortByUpdatedAt:
		query.WriteString(" ORDER BY updated_at DESC, id DESC")
	default:
		query.WriteString(" ORDER BY last_seen DESC, id DESC")
	}

	appendPagination(&query, &args, filter.Limit, filter.Offset)

	vehicles, err := queryVehicles(ctx, s.db, query.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// VehicleStats returns counts by status and recent additions and removals.
func (s *VehicleService) VehicleStats(ctx context.Context, since time.Time) (*autotrack.Stats, error) {
	var stats autotrack.Stats
	sinceValue := formatTime(since)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'sold' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'removed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN first_seen >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN updated_at >= ? AND status IN ('sold', 'removed') THEN 1 ELSE 0 END), 0)
		FROM vehicles
	`, sinceValue, sinceValue).Scan(&stats.TotalActive, &stats.TotalSold, &stats.TotalRemoved,
		&stats.AddedSince, &stats.RemovedSince)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// vehicleWhere builds the WHERE clause for a vehicle filter.
func vehicleWhere(filter autotrack.VehicleFilter) (string, []any) {
	var where strings.Builder
	var args []any

	where.WriteString(" WHERE 1=1")

	if filter.ID != nil {
		where.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if len(filter.Statuses) > 0 {
		where.WriteString(" AND status IN (" + placeholders(len(filter.Statuses)) + ")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.Brand != nil {
		where.WriteString(` AND LOWER(brand) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(*filter.Brand))
	}
	if filter.Model != nil {
		where.WriteString(` AND LOWER(model) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(*filter.Model))
	}
	if filter.Query != nil {
		pattern := likePattern(*filter.Query)
		where.WriteString(` AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\' OR LOWER(model) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.FirstSeenSince != nil {
		where.WriteString(" AND first_seen >= ?")
		args = append(args, formatTime(*filter.FirstSeenSince))
	}
	if filter.UpdatedSince != nil {
		where.WriteString(" AND updated_at >= ?")
		args = append(args, formatTime(*filter.UpdatedSince))
	}

	return where.String(), args
}

// queryVehicles runs a query selecting vehicleColumns and scans every row.
func queryVehicles(ctx context.Context, q queryer, query string, args ...any) ([]*autotrack.Vehicle, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*autotrack.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// scanVehicle scans a row selecting vehicleColumns.
func scanVehicle(row interface{ Scan(dest ...any) error }) (*autotrack.Vehicle, error) {
	var v autotrack.Vehicle
	var firstSeen, lastSeen, createdAt, updatedAt string

	if err := row.Scan(&v.ID, &v.ExternalID, &v.Title, &v.Brand, &v.Model, &v.Year, &v.Price,
		&v.Mileage, &v.FuelType, &v.Transmission, &v.Location, &v.URL, &v.Status,
		&firstSeen, &lastSeen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if v.FirstSeen, err = parseTime(firstSeen, "first_seen"); err != nil {
		return nil, err
	}
	if v.LastSeen, err = parseTime(lastSeen, "last_seen"); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &v, nil
}
