package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestDiffListing(t *testing.T) {
	current := &Listing{
		Title:       "Corolla 2018",
		Description: "Clean",
		Price:       15000,
		PriceType:   PriceTypeFixed,
		City:        strPtr("Almaty"),
	}

	t.Run("unchanged values are dropped", func(t *testing.T) {
		price := 15000.0
		delta := DiffListing(current, ListingFields{Title: strPtr("Corolla 2018"), Price: &price, City: strPtr("Almaty")})
		assert.True(t, delta.IsEmpty())
	})

	t.Run("nil and empty string are the same", func(t *testing.T) {
		delta := DiffListing(current, ListingFields{State: strPtr(""), PostalCode: strPtr("")})
		assert.True(t, delta.IsEmpty())
	})

	t.Run("only differing fields are kept", func(t *testing.T) {
		price := 14000.0
		delta := DiffListing(current, ListingFields{Title: strPtr("Corolla 2018"), Price: &price, Country: strPtr("KZ")})
		assert.Nil(t, delta.Title)
		assert.Equal(t, 14000.0, *delta.Price)
		assert.Equal(t, "KZ", *delta.Country)
		assert.Equal(t, map[string]interface{}{"price": 14000.0, "country": "KZ"}, delta.Columns())
		assert.ElementsMatch(t, []string{"price", "country"}, delta.Names())
	})

	t.Run("clearing a set optional field is a change", func(t *testing.T) {
		delta := DiffListing(current, ListingFields{City: strPtr("")})
		if assert.NotNil(t, delta.City) {
			assert.Equal(t, "", *delta.City)
		}
	})
}

func TestDiffCarDetail(t *testing.T) {
	current := &CarDetail{
		Make:          "Toyota",
		Model:         "Corolla",
		Year:          2018,
		Mileage:       42000,
		NumberOfDoors: 4,
		Features:      Features{"abs", "bluetooth"},
	}

	t.Run("equal slices are no change", func(t *testing.T) {
		same := []string{"abs", "bluetooth"}
		assert.True(t, DiffCarDetail(current, CarDetailFields{Features: &same}).IsEmpty())
	})

	t.Run("empty slices are no change", func(t *testing.T) {
		empty := []string{}
		assert.True(t, DiffCarDetail(&CarDetail{}, CarDetailFields{Features: &empty}).IsEmpty())
	})

	t.Run("reordered features are a change", func(t *testing.T) {
		reordered := []string{"bluetooth", "abs"}
		delta := DiffCarDetail(current, CarDetailFields{Features: &reordered})
		assert.Equal(t, Features{"bluetooth", "abs"}, delta.Columns()["features"])
	})

	t.Run("scalars", func(t *testing.T) {
		mileage, doors := 50000, 4
		damaged := true
		delta := DiffCarDetail(current, CarDetailFields{Mileage: &mileage, NumberOfDoors: &doors, HasAccidentHistory: &damaged})
		assert.Equal(t, map[string]interface{}{"mileage": 50000, "has_accident_history": true}, delta.Columns())
		assert.ElementsMatch(t, []string{"carDetail.mileage", "carDetail.hasAccidentHistory"}, delta.Names())
	})
}

func TestSnapshot(t *testing.T) {
	l := &Listing{Title: "T", Price: 1, PriceType: PriceTypeAuction}
	snap := SnapshotListing(l)
	assert.Equal(t, "T", *snap.Title)
	assert.Equal(t, PriceTypeAuction, *snap.PriceType)

	cd := &CarDetail{Make: "BMW", Features: Features{"x"}}
	detailSnap := SnapshotCarDetail(cd)
	cd.Features[0] = "mutated"
	assert.Equal(t, []string{"x"}, *detailSnap.Features)
	assert.True(t, DiffCarDetail(&CarDetail{Make: "BMW", Features: Features{"x"}}, detailSnap).IsEmpty())
}

func TestFeatures_ValueScan(t *testing.T) {
	v, err := Features{"a", "b c"}.Value()
	assert.NoError(t, err)

	var back Features
	assert.NoError(t, back.Scan(v))
	assert.Equal(t, Features{"a", "b c"}, back)
}
