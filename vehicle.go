package autotrack

import (
	"context"
	"time"
)

// Status is the lifecycle state of a tracked vehicle.
type Status string

// Vehicle statuses. Sold and removed are terminal: the reconciliation engine
// never moves a vehicle out of them.
const (
	StatusActive  Status = "active"
	StatusSold    Status = "sold"
	StatusRemoved Status = "removed"
)

// Validate returns an error if the status is not a known status.
func (s Status) Validate() error {
	switch s {
	case StatusActive, StatusSold, StatusRemoved:
		return nil
	}
	return Errorf(EINVALID, "invalid status %q", string(s))
}

// Terminal reports whether the status is sold or removed.
func (s Status) Terminal() bool {
	return s == StatusSold || s == StatusRemoved
}

// Vehicle is a listing tracked in the catalog.
type Vehicle struct {
	ID           int64   `json:"id"`
	ExternalID   string  `json:"external_id"`
	Title        string  `json:"title"`
	Brand        *string `json:"brand"`
	Model        *string `json:"model"`
	Year         *int    `json:"year"`
	Price        *string `json:"price"`
	Mileage      *string `json:"mileage"`
	FuelType     *string `json:"fuel_type"`
	Transmission *string `json:"transmission"`
	Location     *string `json:"location"`
	URL          string  `json:"url"`
	Status       Status  `json:"status"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewVehicle returns an active vehicle populated from a listing first observed at now.
func NewVehicle(l *Listing, now time.Time) *Vehicle {
	v := &Vehicle{
		ExternalID: l.ExternalID,
		URL:        l.URL,
		Status:     StatusActive,
		FirstSeen:  now,
		LastSeen:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, f := range TrackedFields {
		v.CopyField(l, f)
	}
	return v
}

// Validate returns an error if the vehicle contains invalid fields.
func (v *Vehicle) Validate() error {
	if v.ExternalID == "" {
		return Errorf(EINVALID, "vehicle external ID required")
	}
	if v.Title == "" {
		return Errorf(EINVALID, "vehicle title required")
	}
	if v.URL == "" {
		return Errorf(EINVALID, "vehicle URL required")
	}
	if err := v.Status.Validate(); err != nil {
		return err
	}
	if v.LastSeen.Before(v.FirstSeen) {
		return Errorf(EINVALID, "vehicle last seen before first seen")
	}
	if v.UpdatedAt.Before(v.CreatedAt) {
		return Errorf(EINVALID, "vehicle updated before created")
	}
	return nil
}

// Value returns the display value of a field, or nil when the field is unset.
func (v *Vehicle) Value(f Field) *string {
	switch f {
	case FieldExternalID:
		return &v.ExternalID
	case FieldTitle:
		return &v.Title
	case FieldURL:
		return &v.URL
	case FieldPrice:
		return v.Price
	case FieldBrand:
		return v.Brand
	case FieldModel:
		return v.Model
	case FieldYear:
		return formatYear(v.Year)
	case FieldMileage:
		return v.Mileage
	case FieldFuelType:
		return v.FuelType
	case FieldTransmission:
		return v.Transmission
	case FieldLocation:
		return v.Location
	case FieldStatus:
		s := string(v.Status)
		return &s
	}
	return nil
}

// CopyField sets a tracked field of the vehicle to the listing's value.
// The external ID, URL, and status are never copied.
func (v *Vehicle) CopyField(l *Listing, f Field) {
	switch f {
	case FieldTitle:
		v.Title = l.Title
	case FieldPrice:
		v.Price = l.Price
	case FieldBrand:
		v.Brand = l.Brand
	case FieldModel:
		v.Model = l.Model
	case FieldYear:
		v.Year = l.Year
	case FieldMileage:
		v.Mileage = l.Mileage
	case FieldFuelType:
		v.FuelType = l.FuelType
	case FieldTransmission:
		v.Transmission = l.Transmission
	case FieldLocation:
		v.Location = l.Location
	}
}

// VehicleService represents a read-only service over the vehicle catalog.
type VehicleService interface {
	// FindVehicleByID retrieves a vehicle by ID.
	// Returns ENOTFOUND if vehicle does not exist.
	FindVehicleByID(ctx context.Context, id int64) (*Vehicle, error)

	// FindVehicles retrieves vehicles matching the filter. Also returns the
	// total number of matching vehicles, which may differ from the number of
	// returned vehicles when Limit is set.
	FindVehicles(ctx context.Context, filter VehicleFilter) ([]*Vehicle, int, error)

	// VehicleStats returns counts by status plus additions and removals
	// observed at or after since.
	VehicleStats(ctx context.Context, since time.Time) (*Stats, error)
}

// VehicleSortOrder represents the sort order for vehicle queries.
// Vehicles are always sorted newest first.
type VehicleSortOrder string

// VehicleSortOrder constants for VehicleFilter.
const (
	SortByLastSeen  VehicleSortOrder = "last_seen"
	SortByFirstSeen VehicleSortOrder = "first_seen"
	SortByUpdatedAt VehicleSortOrder = "updated_at"
)

// VehicleFilter represents a filter for FindVehicles.
type VehicleFilter struct {
	ID       *int64   `json:"id"`
	Statuses []Status `json:"statuses"`

	// Case-insensitive substring matches.
	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Query *string `json:"query"` // title, brand, or model

	FirstSeenSince *time.Time `json:"first_seen_since"`
	UpdatedSince   *time.Time `json:"updated_since"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`

	SortBy VehicleSortOrder `json:"sort_by"`
}

// Stats summarizes the catalog.
type Stats struct {
	TotalActive  int `json:"total_active"`
	TotalSold    int `json:"total_sold"`
	TotalRemoved int `json:"total_removed"`
	AddedSince   int `json:"added_last_24h"`
	RemovedSince int `json:"removed_last_24h"`
}
