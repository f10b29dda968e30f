package autotrack

// Field names a vehicle attribute tracked in the change history.
type Field string

// Vehicle fields.
const (
	FieldExternalID   Field = "external_id"
	FieldTitle        Field = "title"
	FieldURL          Field = "url"
	FieldPrice        Field = "price"
	FieldBrand        Field = "brand"
	FieldModel        Field = "model"
	FieldYear         Field = "year"
	FieldMileage      Field = "mileage"
	FieldFuelType     Field = "fuel_type"
	FieldTransmission Field = "transmission"
	FieldLocation     Field = "location"
	FieldStatus       Field = "status"
)

// ListingFields lists every field carried by a Listing, in display order.
var ListingFields = []Field{
	FieldExternalID,
	FieldTitle,
	FieldBrand,
	FieldModel,
	FieldYear,
	FieldPrice,
	FieldMileage,
	FieldFuelType,
	FieldTransmission,
	FieldLocation,
	FieldURL,
}

// TrackedFields lists the fields compared when a known listing is observed
// again. The external ID and URL identify the listing and are never diffed.
var TrackedFields = []Field{
	FieldTitle,
	FieldBrand,
	FieldModel,
	FieldYear,
	FieldPrice,
	FieldMileage,
	FieldFuelType,
	FieldTransmission,
	FieldLocation,
}

// Change holds the old and new display values of a single field.
// A nil Old means the field had no value (or did not exist) before.
type Change struct {
	Old *string `json:"old,omitempty"`
	New *string `json:"new"`
}

// Changes maps changed fields to their old and new values.
type Changes map[Field]Change

// ListingChanges returns the full field set of a listing as changes with no
// old values, as recorded when a listing is first added.
func ListingChanges(l *Listing) Changes {
	changes := make(Changes, len(ListingFields))
	for _, f := range ListingFields {
		changes[f] = Change{New: l.Value(f)}
	}
	return changes
}

// StatusChange returns the changes recorded for a status transition.
func StatusChange(from, to Status) Changes {
	oldValue, newValue := string(from), string(to)
	return Changes{FieldStatus: {Old: &oldValue, New: &newValue}}
}
