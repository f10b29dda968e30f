package mock

import (
	"context"
	"time"

	"github.com/fwojciec/autotrack"
)

var (
	_ autotrack.VehicleService = (*VehicleService)(nil)
	_ autotrack.HistoryService = (*HistoryService)(nil)
)

// VehicleService is a mock implementation of autotrack.VehicleService.
type VehicleService struct {
	FindVehicleByIDFn func(ctx context.Context, id int64) (*autotrack.Vehicle, error)
	FindVehiclesFn    func(ctx context.Context, filter autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error)
	VehicleStatsFn    func(ctx context.Context, since time.Time) (*autotrack.Stats, error)
}

func (s *VehicleService) FindVehicleByID(ctx context.Context, id int64) (*autotrack.Vehicle, error) {
	return s.FindVehicleByIDFn(ctx, id)
}

func (s *VehicleService) FindVehicles(ctx context.Context, filter autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error) {
	return s.FindVehiclesFn(ctx, filter)
}

func (s *VehicleService) VehicleStats(ctx context.Context, since time.Time) (*autotrack.Stats, error) {
	return s.VehicleStatsFn(ctx, since)
}

// HistoryService is a mock implementation of autotrack.HistoryService.
type HistoryService struct {
	FindHistoryFn func(ctx context.Context, vehicleID int64) ([]*autotrack.HistoryEntry, error)
}

func (s *HistoryService) FindHistory(ctx context.Context, vehicleID int64) ([]*autotrack.HistoryEntry, error) {
	return s.FindHistoryFn(ctx, vehicleID)
}
