package sqlite

import (
	"context"

	"github.com/fwojciec/autotrack"
)

// Compile-time interface verification.
var _ autotrack.HistoryService = (*HistoryService)(nil)

// HistoryService implements autotrack.HistoryService using SQLite.
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
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM vehicles WHERE id = ?)", vehicleID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vehicle_id, action, changes, timestamp
		FROM vehicle_history
		WHERE vehicle_id = ?
		ORDER BY timestamp DESC, id DESC
	`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*autotrack.HistoryEntry
	for rows.Next() {
		var entry autotrack.HistoryEntry
		var changes, timestamp string

		if err := rows.Scan(&entry.ID, &entry.VehicleID, &entry.Action, &changes, &timestamp); err != nil {
			return nil, err
		}

		if entry.Changes, err = decodeChanges(changes); err != nil {
			return nil, err
		}
		if entry.Timestamp, err = parseTime(timestamp, "timestamp"); err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
