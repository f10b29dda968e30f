package autotrack

import (
	"context"
	"time"
)

// Action describes what happened to a vehicle in a history entry.
type Action string

// History actions.
const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionRemoved Action = "removed"
)

// HistoryEntry is an immutable record of a change to a vehicle.
// Every vehicle has exactly one added entry, written together with the vehicle.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	Action    Action    `json:"action"`
	Changes   Changes   `json:"changes"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryService represents a read-only service over vehicle history.
type HistoryService interface {
	// FindHistory returns all history entries for a vehicle, newest first.
	// Returns ENOTFOUND if vehicle does not exist.
	FindHistory(ctx context.Context, vehicleID int64) ([]*HistoryEntry, error)
}
