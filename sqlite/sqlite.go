// Package sqlite provides SQLite-based storage implementations for autotrack services.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	// Readers queue behind an open reconciliation transaction and therefore
	// only ever observe committed state.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set busy timeout to wait 5 seconds before failing on lock contention.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

// createSchema creates the database tables if they don't exist.
// History rows are append-only; triggers reject updates and deletes.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS vehicles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
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
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_vehicles_status ON vehicles(status);
		CREATE INDEX IF NOT EXISTS idx_vehicles_first_seen ON vehicles(first_seen);
		CREATE INDEX IF NOT EXISTS idx_vehicles_last_seen ON vehicles(last_seen);
		CREATE INDEX IF NOT EXISTS idx_vehicles_updated_at ON vehicles(updated_at);

		CREATE TABLE IF NOT EXISTS vehicle_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vehicle_id INTEGER NOT NULL REFERENCES vehicles(id),
			action TEXT NOT NULL CHECK (action IN ('added', 'updated', 'removed')),
			changes TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_vehicle_history_vehicle_id ON vehicle_history(vehicle_id);

		CREATE TRIGGER IF NOT EXISTS vehicle_history_no_update
		BEFORE UPDATE ON vehicle_history
		BEGIN
			SELECT RAISE(ABORT, 'vehicle history is append-only');
		END;

		CREATE TRIGGER IF NOT EXISTS vehicle_history_no_delete
		BEFORE DELETE ON vehicle_history
		BEGIN
			SELECT RAISE(ABORT, 'vehicle history is append-only');
		END;
	`

	_, err := db.db.Exec(schema)
	return err
}
