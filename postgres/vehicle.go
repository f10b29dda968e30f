package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Compile-time interface verification.
var _ autotrack.VehicleService = (*VehicleService)(nil)

// queryer is implemented by both Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const vehicleColumns = `id, external_id, title, brand, model, year, price, mileage, fuel_type,
	transmission, location, url, status, first_seen, last_seen, created_at, updated_at`

// VehicleService implements autotrack.VehicleService using PostgreSQL.
type VehicleService struct {
	db *DB
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(db *DB) *VehicleService {
	return &VehicleService{db: db}
}

// FindVehicleByID retrieves a vehicle by ID.
func (s *VehicleService) FindVehicleByID(ctx context.Context, id int64) (*autotrack.Vehicle, error) {
	v, err := scanVehicle(s.db.pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// FindVehicles retrieves vehicles matching the filter and the total count of matches.
func (s *VehicleService) FindVehicles(ctx context.Context, filter autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error) {
	var args queryArgs
	where := vehicleWhere(filter, &args)

	var total int
	if err := s.db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM vehicles"+where, args...).Scan(&total); err != nil {
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

	vehicles, err := queryVehicles(ctx, s.db.pool, query.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// VehicleStats returns counts by status and recent additions and removals.
func (s *VehicleService) VehicleStats(ctx context.Context, since time.Time) (*autotrack.Stats, error) {
	var stats autotrack.Stats

	err := s.db.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'sold'),
			COUNT(*) FILTER (WHERE status = 'removed'),
			COUNT(*) FILTER (WHERE first_seen >= $1),
			COUNT(*) FILTER (WHERE updated_at >= $1 AND status IN ('sold', 'removed'))
		FROM vehicles
	`, since.UTC()).Scan(&stats.TotalActive, &stats.TotalSold, &stats.TotalRemoved,
		&stats.AddedSince, &stats.RemovedSince)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// vehicleWhere builds the WHERE clause for a vehicle filter.
func vehicleWhere(filter autotrack.VehicleFilter, args *queryArgs) string {
	var where strings.Builder

	where.WriteString(" WHERE 1=1")

	if filter.ID != nil {
		where.WriteString(" AND id = " + args.add(*filter.ID))
	}
	if len(filter.Statuses) > 0 {
		where.WriteString(" AND status = ANY(" + args.add(statusStrings(filter.Statuses)) + ")")
	}
	if filter.Brand != nil {
		where.WriteString(" AND brand ILIKE " + args.add(likePattern(*filter.Brand)))
	}
	if filter.Model != nil {
		where.WriteString(" AND model ILIKE " + args.add(likePattern(*filter.Model)))
	}
	if filter.Query != nil {
		p := args.add(likePattern(*filter.Query))
		where.WriteString(" AND (title ILIKE " + p + " OR brand ILIKE " + p + " OR model ILIKE " + p + ")")
	}
	if filter.FirstSeenSince != nil {
		where.WriteString(" AND first_seen >= " + args.add(filter.FirstSeenSince.UTC()))
	}
	if filter.UpdatedSince != nil {
		where.WriteString(" AND updated_at >= " + args.add(filter.UpdatedSince.UTC()))
	}

	return where.String()
}

// queryVehicles runs a query selecting vehicleColumns and scans every row.
func queryVehicles(ctx context.Context, q queryer, query string, args ...any) ([]*autotrack.Vehicle, error) {
	rows, err := q.Query(ctx, query, args...)
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
func scanVehicle(row pgx.Row) (*autotrack.Vehicle, error) {
	var v autotrack.Vehicle

	if err := row.Scan(&v.ID, &v.ExternalID, &v.Title, &v.Brand, &v.Model, &v.Year, &v.Price,
		&v.Mileage, &v.FuelType, &v.Transmission, &v.Location, &v.URL, &v.Status,
		&v.FirstSeen, &v.LastSeen, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}

	v.FirstSeen = v.FirstSeen.UTC()
	v.LastSeen = v.LastSeen.UTC()
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()

	return &v, nil
}
