// File: internal/listing/fields.go
package listing

import (
	"slices"
)

// ListingFields is a partial set of listing scalars. A nil field means "not part of this set".
// It is used both for incoming edits and for the staged delta of a pending change.
type ListingFields struct {
	Title       *string    `json:"title,omitempty" binding:"omitempty,min=3,max=200"`
	Description *string    `json:"description,omitempty"`
	Price       *float64   `json:"price,omitempty" binding:"omitempty,gt=0"`
	PriceType   *PriceType `json:"priceType,omitempty" binding:"omitempty,oneof=fixed negotiable auction"`
	Location    *string    `json:"location,omitempty"`
	City        *string    `json:"city,omitempty"`
	State       *string    `json:"state,omitempty"`
	Country     *string    `json:"country,omitempty"`
	PostalCode  *string    `json:"postalCode,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude   *float64   `json:"longitude,omitempty" binding:"omitempty,longitude"`
}

// CarDetailFields is a partial set of car detail scalars.
type CarDetailFields struct {
	Make               *string       `json:"make,omitempty" binding:"omitempty,max=100"`
	Model              *string       `json:"model,omitempty" binding:"omitempty,max=100"`
	Year               *int          `json:"year,omitempty" binding:"omitempty,gte=1900,lte=2100"`
	BodyType           *BodyType     `json:"bodyType,omitempty" binding:"omitempty,oneof=sedan hatchback suv coupe convertible wagon pickup van minivan"`
	FuelType           *FuelType     `json:"fuelType,omitempty" binding:"omitempty,oneof=petrol diesel electric hybrid lpg cng"`
	Transmission       *Transmission `json:"transmission,omitempty" binding:"omitempty,oneof=manual automatic cvt semi_automatic"`
	EngineSize         *float64      `json:"engineSize,omitempty" binding:"omitempty,gt=0"`
	EnginePower        *int          `json:"enginePower,omitempty" binding:"omitempty,gt=0"`
	Mileage            *int          `json:"mileage,omitempty" binding:"omitempty,gte=0"`
	Color              *string       `json:"color,omitempty"`
	NumberOfDoors      *int          `json:"numberOfDoors,omitempty" binding:"omitempty,gte=1,lte=8"`
	NumberOfSeats      *int          `json:"numberOfSeats,omitempty" binding:"omitempty,gte=1,lte=20"`
	Condition          *Condition    `json:"condition,omitempty" binding:"omitempty,oneof=excellent very_good good fair poor"`
	VIN                *string       `json:"vin,omitempty"`
	RegistrationNumber *string       `json:"registrationNumber,omitempty"`
	PreviousOwners     *int          `json:"previousOwners,omitempty" binding:"omitempty,gte=0"`
	HasAccidentHistory *bool         `json:"hasAccidentHistory,omitempty"`
	HasServiceHistory  *bool         `json:"hasServiceHistory,omitempty"`
	Description        *string       `json:"description,omitempty"`
	Features           *[]string     `json:"features,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f ListingFields) IsEmpty() bool {
	return len(f.Columns()) == 0
}

// Columns maps every set field to its listings column.
func (f ListingFields) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	put(cols, "title", f.Title)
	put(cols, "description", f.Description)
	put(cols, "price", f.Price)
	put(cols, "price_type", f.PriceType)
	put(cols, "location", f.Location)
	put(cols, "city", f.City)
	put(cols, "state", f.State)
	put(cols, "country", f.Country)
	put(cols, "postal_code", f.PostalCode)
	put(cols, "latitude", f.Latitude)
	put(cols, "longitude", f.Longitude)
	return cols
}

// Names lists the set fields in their JSON spelling.
func (f ListingFields) Names() []string {
	var names []string
	add := func(name string, set bool) {
		if set {
			names = append(names, name)
		}
	}
	add("title", f.Title != nil)
	add("description", f.Description != nil)
	add("price", f.Price != nil)
	add("priceType", f.PriceType != nil)
	add("location", f.Location != nil)
	add("city", f.City != nil)
	add("state", f.State != nil)
	add("country", f.Country != nil)
	add("postalCode", f.PostalCode != nil)
	add("latitude", f.Latitude != nil)
	add("longitude", f.Longitude != nil)
	return names
}

// IsEmpty reports whether no field is set.
func (f CarDetailFields) IsEmpty() bool {
	return len(f.Columns()) == 0
}

// Columns maps every set field to its car_details column.
func (f CarDetailFields) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	put(cols, "make", f.Make)
	put(cols, "model", f.Model)
	put(cols, "year", f.Year)
	put(cols, "body_type", f.BodyType)
	put(cols, "fuel_type", f.FuelType)
	put(cols, "transmission", f.Transmission)
	put(cols, "engine_size", f.EngineSize)
	put(cols, "engine_power", f.EnginePower)
	put(cols, "mileage", f.Mileage)
	put(cols, "color", f.Color)
	put(cols, "number_of_doors", f.NumberOfDoors)
	put(cols, "number_of_seats", f.NumberOfSeats)
	put(cols, "condition", f.Condition)
	put(cols, "vin", f.VIN)
	put(cols, "registration_number", f.RegistrationNumber)
	put(cols, "previous_owners", f.PreviousOwners)
	put(cols, "has_accident_history", f.HasAccidentHistory)
	put(cols, "has_service_history", f.HasServiceHistory)
	put(cols, "description", f.Description)
	if f.Features != nil {
		cols["features"] = Features(*f.Features)
	}
	return cols
}

// Names lists the set fields in their JSON spelling, prefixed with "carDetail.".
func (f CarDetailFields) Names() []string {
	var names []string
	add := func(name string, set bool) {
		if set {
			names = append(names, "carDetail."+name)
		}
	}
	add("make", f.Make != nil)
	add("model", f.Model != nil)
	add("year", f.Year != nil)
	add("bodyType", f.BodyType != nil)
	add("fuelType", f.FuelType != nil)
	add("transmission", f.Transmission != nil)
	add("engineSize", f.EngineSize != nil)
	add("enginePower", f.EnginePower != nil)
	add("mileage", f.Mileage != nil)
	add("color", f.Color != nil)
	add("numberOfDoors", f.NumberOfDoors != nil)
	add("numberOfSeats", f.NumberOfSeats != nil)
	add("condition", f.Condition != nil)
	add("vin", f.VIN != nil)
	add("registrationNumber", f.RegistrationNumber != nil)
	add("previousOwners", f.PreviousOwners != nil)
	add("hasAccidentHistory", f.HasAccidentHistory != nil)
	add("hasServiceHistory", f.HasServiceHistory != nil)
	add("description", f.Description != nil)
	add("features", f.Features != nil)
	return names
}

func put[T any](cols map[string]interface{}, column string, v *T) {
	if v != nil {
		cols[column] = *v
	}
}

// DiffListing keeps only the proposed fields that differ from the current listing.
func DiffListing(current *Listing, proposed ListingFields) ListingFields {
	return ListingFields{
		Title:       diff(current.Title, proposed.Title),
		Description: diff(current.Description, proposed.Description),
		Price:       diff(current.Price, proposed.Price),
		PriceType:   diff(current.PriceType, proposed.PriceType),
		Location:    diffOptional(current.Location, proposed.Location),
		City:        diffOptional(current.City, proposed.City),
		State:       diffOptional(current.State, proposed.State),
		Country:     diffOptional(current.Country, proposed.Country),
		PostalCode:  diffOptional(current.PostalCode, proposed.PostalCode),
		Latitude:    diffOptional(current.Latitude, proposed.Latitude),
		Longitude:   diffOptional(current.Longitude, proposed.Longitude),
	}
}

// DiffCarDetail keeps only the proposed fields that differ from the current car detail.
func DiffCarDetail(current *CarDetail, proposed CarDetailFields) CarDetailFields {
	return CarDetailFields{
		Make:               diff(current.Make, proposed.Make),
		Model:              diff(current.Model, proposed.Model),
		Year:               diff(current.Year, proposed.Year),
		BodyType:           diff(current.BodyType, proposed.BodyType),
		FuelType:           diff(current.FuelType, proposed.FuelType),
		Transmission:       diff(current.Transmission, proposed.Transmission),
		EngineSize:         diffOptional(current.EngineSize, proposed.EngineSize),
		EnginePower:        diffOptional(current.EnginePower, proposed.EnginePower),
		Mileage:            diff(current.Mileage, proposed.Mileage),
		Color:              diffOptional(current.Color, proposed.Color),
		NumberOfDoors:      diff(current.NumberOfDoors, proposed.NumberOfDoors),
		NumberOfSeats:      diff(current.NumberOfSeats, proposed.NumberOfSeats),
		Condition:          diff(current.Condition, proposed.Condition),
		VIN:                diffOptional(current.VIN, proposed.VIN),
		RegistrationNumber: diffOptional(current.RegistrationNumber, proposed.RegistrationNumber),
		PreviousOwners:     diffOptional(current.PreviousOwners, proposed.PreviousOwners),
		HasAccidentHistory: diff(current.HasAccidentHistory, proposed.HasAccidentHistory),
		HasServiceHistory:  diff(current.HasServiceHistory, proposed.HasServiceHistory),
		Description:        diffOptional(current.Description, proposed.Description),
		Features:           diffStrings(current.Features, proposed.Features),
	}
}

func diff[T comparable](current T, proposed *T) *T {
	if proposed == nil || *proposed == current {
		return nil
	}
	if isBlank(current) && isBlank(*proposed) {
		return nil
	}
	return proposed
}

func diffOptional[T comparable](current, proposed *T) *T {
	if proposed == nil {
		return nil
	}
	if current == nil {
		if isBlank(*proposed) {
			return nil
		}
		return proposed
	}
	return diff(*current, proposed)
}

func diffStrings(current []string, proposed *[]string) *[]string {
	if proposed == nil {
		return nil
	}
	if len(current) == 0 && len(*proposed) == 0 {
		return nil
	}
	if slices.Equal(current, *proposed) {
		return nil
	}
	return proposed
}

// isBlank treats the empty string as "no value". Numbers and booleans are never blank.
func isBlank(v interface{}) bool {
	switch s := v.(type) {
	case string:
		return s == ""
	case *string:
		return s == nil || *s == ""
	}
	return false
}

// SnapshotListing captures every scalar of l.
func SnapshotListing(l *Listing) ListingFields {
	return ListingFields{
		Title:       ptr(l.Title),
		Description: ptr(l.Description),
		Price:       ptr(l.Price),
		PriceType:   ptr(l.PriceType),
		Location:    l.Location,
		City:        l.City,
		State:       l.State,
		Country:     l.Country,
		PostalCode:  l.PostalCode,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
	}
}

// SnapshotCarDetail captures every scalar of cd.
func SnapshotCarDetail(cd *CarDetail) CarDetailFields {
	features := append([]string{}, cd.Features...)
	return CarDetailFields{
		Make:               ptr(cd.Make),
		Model:              ptr(cd.Model),
		Year:               ptr(cd.Year),
		BodyType:           ptr(cd.BodyType),
		FuelType:           ptr(cd.FuelType),
		Transmission:       ptr(cd.Transmission),
		EngineSize:         cd.EngineSize,
		EnginePower:        cd.EnginePower,
		Mileage:            ptr(cd.Mileage),
		Color:              cd.Color,
		NumberOfDoors:      ptr(cd.NumberOfDoors),
		NumberOfSeats:      ptr(cd.NumberOfSeats),
		Condition:          ptr(cd.Condition),
		VIN:                cd.VIN,
		RegistrationNumber: cd.RegistrationNumber,
		PreviousOwners:     cd.PreviousOwners,
		HasAccidentHistory: ptr(cd.HasAccidentHistory),
		HasServiceHistory:  ptr(cd.HasServiceHistory),
		Description:        cd.Description,
		Features:           &features,
	}
}

func ptr[T any](v T) *T {
	return &v
}
