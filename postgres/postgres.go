// Package postgres provides PostgreSQL-based storage implementations for autotrack services.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of *pgxpool.Pool used by this package.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// schemaLockID serializes concurrent schema creation across processes.
const schemaLockID = 7202411

// Pool sizing.
const (
	DefaultMaxConns        = 10
	DefaultMinConns        = 1
	DefaultMaxConnLifetime = 30 * time.Minute
	DefaultMaxConnIdleTime = 5 * time.Minute
)

// DB represents a PostgreSQL connection pool.
type DB struct {
	pool Pool
	dsn  string
}

// NewDB creates a new DB instance for the given connection string.
func NewDB(dsn string) *DB {
	return &DB{dsn: dsn}
}

// NewDBWithPool creates a DB on top of an existing pool. The schema is not
// created until Migrate is called.
func NewDBWithPool(pool Pool) *DB {
	return &DB{pool: pool}
}

// Open connects the pool and creates the schema if needed.
func (db *DB) Open(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(db.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.MaxConns = DefaultMaxConns
	cfg.MinConns = DefaultMinConns
	cfg.MaxConnLifetime = DefaultMaxConnLifetime
	cfg.MaxConnIdleTime = DefaultMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.pool = pool

	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		db.pool = nil
		return err
	}
	return nil
}

// Close closes the pool.
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// Migrate creates the tables, indexes and triggers if they don't exist.
// History rows are append-only; a trigger rejects updates and deletes.
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("failed to acquire schema lock: %w", err)
	}
	if _, err := tx.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS vehicles (
		id BIGSERIAL PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		brand TEXT,
		model TEXT,
		year INTEGER,
		price TEXT,
		mileage TEXT,
		fuel_type TEXT,
		transmission TEXT,
		location TEXT,
		url TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'sold', 'removed')),
		first_seen TIMESTAMPTZ NOT NULL,
		last_seen TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status);
	CREATE INDEX IF NOT EXISTS idx_vehicles_first_seen ON vehicles(first_seen);
	CREATE INDEX IF NOT EXISTS idx_vehicles_last_seen ON vehicles(last_seen);
	CREATE INDEX IF NOT EXISTS idx_vehicles_updated_at ON vehicles(updated_at);

	CREATE TABLE IF NOT EXISTS vehicle_history (
		id BIGSERIAL PRIMARY KEY,
		vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
		action TEXT NOT NULL CHECK (action IN ('added', 'updated', 'removed')),
		changes JSONB NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vehicle_history_vehicle_id ON vehicle_history(vehicle_id);

	CREATE OR REPLACE FUNCTION vehicle_history_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'vehicle history is append-only';
	END;
	$$ LANGUAGE plpgsql;

	DROP TRIGGER IF EXISTS vehicle_history_append_only ON vehicle_history;
	CREATE TRIGGER vehicle_history_append_only
	BEFORE UPDATE OR DELETE ON vehicle_history
	FOR EACH ROW EXECUTE FUNCTION vehicle_history_append_only();
`
