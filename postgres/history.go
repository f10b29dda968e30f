package postgres

import (
	"context"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.HistoryService = (*HistoryService)(nil)

// HistoryService implements autotrack.HistoryService using PostgreSQL.
type HistoryService struct {
	db *DB
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(db *DB) *HistoryService {
	return &HistoryService{db: db}
}

// FindHistory returns all history entries for a vehicle, newest first.
func (s *HistoryService) FindHistory(ctx context.Context, vehicleID int64) ([]*autotrack.HistoryEntry, error) {
	var exists bool
	if err := s.db.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = $1)", vehicleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
	}

	rows, err := s.db.pool.Query(ctx, `
		SELECT id, vehicle_id, action, changes, timestamp
		FROM vehicle_history
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC, id DESC
	`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*autotrack.HistoryEntry
	for rows.Next() {
		var entry autotrack.HistoryEntry
		var changes []byte

		if err := rows.Scan(&entry.ID, &entry.VehicleID, &entry.Action, &changes, &entry.Timestamp); err != nil {
			return nil, err
		}

		if entry.Changes, err = decodeChanges(changes); err != nil {
			return nil, err
		}
		entry.Timestamp = entry.Timestamp.UTC()

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
