package autotrack

import (
	"iter"
	"strconv"
)

// NotAvailable is the placeholder stored when a listing card has no title or price.
const NotAvailable = "N/A"

// Listing is a vehicle listing as observed on one listing page.
// Listings are produced by an Extractor and never modified afterwards.
type Listing struct {
	ExternalID   string  `json:"external_id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Price        *string `json:"price"`
	Brand        *string `json:"brand"`
	Model        *string `json:"model"`
	Year         *int    `json:"year"`
	Mileage      *string `json:"mileage"`
	FuelType     *string `json:"fuel_type"`
	Transmission *string `json:"transmission"`
	Location     *string `json:"location"`
}

// Validate returns an error if the listing is missing a required field.
func (l *Listing) Validate() error {
	if l.ExternalID == "" {
		return Errorf(EINVALID, "listing external ID required")
	}
	if l.Title == "" {
		return Errorf(EINVALID, "listing title required")
	}
	if l.URL == "" {
		return Errorf(EINVALID, "listing URL required")
	}
	return nil
}

// Value returns the display value of a field, or nil when the field is unset.
func (l *Listing) Value(f Field) *string {
	switch f {
	case FieldExternalID:
		return &l.ExternalID
	case FieldTitle:
		return &l.Title
	case FieldURL:
		return &l.URL
	case FieldPrice:
		return l.Price
	case FieldBrand:
		return l.Brand
	case FieldModel:
		return l.Model
	case FieldYear:
		return formatYear(l.Year)
	case FieldMileage:
		return l.Mileage
	case FieldFuelType:
		return l.FuelType
	case FieldTransmission:
		return l.Transmission
	case FieldLocation:
		return l.Location
	}
	return nil
}

// Extractor parses the content of one listing page into listings.
type Extractor interface {
	// Extract returns a single-pass sequence over the listing cards found in
	// content. Cards that cannot be turned into a listing (no link, no numeric
	// identifier) are yielded as an EINVALID error and never stop the sequence.
	// The returned error is non-nil only if content cannot be parsed at all.
	Extract(content string) (iter.Seq2[*Listing, error], error)
}

func formatYear(year *int) *string {
	if year == nil {
		return nil
	}
	s := strconv.Itoa(*year)
	return &s
}
