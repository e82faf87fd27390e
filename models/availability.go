package models

import "time"

// DiscountCategory is the API's discount key for a fare group
type DiscountCategory string

const (
	// NoDiscount is the full-price category ("KEINE" in the API)
	NoDiscount DiscountCategory = "KEINE"
	// HalfFare is the half-fare travelcard category ("HTA123" in the API)
	HalfFare DiscountCategory = "HTA123"
)

// TravelClass is the travel class of a fare
type TravelClass string

const (
	SecondClass TravelClass = "second"
	FirstClass  TravelClass = "first"
)

// FareCell is one price+availability pair for a specific discount category
// and travel class on a specific travel date. Price is in currency minor
// units (Rappen); the availability code is never evaluated without its
// paired price.
type FareCell struct {
	TravelDate   time.Time
	Discount     DiscountCategory
	Class        TravelClass
	Price        int
	Availability string
}

// FareOption is the wire shape of one price point
type FareOption struct {
	Price        int    `json:"price"`
	Availability string `json:"availability"`
}

// ClassFares holds the per-class fares of one discount category.
// Either class may be absent from the response.
type ClassFares struct {
	Second *FareOption `json:"second,omitempty"`
	First  *FareOption `json:"first,omitempty"`
}

// DayAvailability is one per-day entry of the API response
type DayAvailability struct {
	TravelDate time.Time `json:"travelDate"`
	Prices     struct {
		NoDiscount *ClassFares `json:"KEINE,omitempty"`
		HalfFare   *ClassFares `json:"HTA123,omitempty"`
	} `json:"prices"`
}

// Cells enumerates the day's fare cells in the fixed order
// (NoDiscount, Second), (NoDiscount, First), (HalfFare, Second),
// (HalfFare, First), skipping pairs absent from the response.
func (d DayAvailability) Cells() []FareCell {
	var cells []FareCell
	appendGroup := func(category DiscountCategory, fares *ClassFares) {
		if fares == nil {
			return
		}
		if fares.Second != nil {
			cells = append(cells, FareCell{
				TravelDate:   d.TravelDate,
				Discount:     category,
				Class:        SecondClass,
				Price:        fares.Second.Price,
				Availability: fares.Second.Availability,
			})
		}
		if fares.First != nil {
			cells = append(cells, FareCell{
				TravelDate:   d.TravelDate,
				Discount:     category,
				Class:        FirstClass,
				Price:        fares.First.Price,
				Availability: fares.First.Availability,
			})
		}
	}
	appendGroup(NoDiscount, d.Prices.NoDiscount)
	appendGroup(HalfFare, d.Prices.HalfFare)
	return cells
}

// AvailabilityReport is the result of one fetch: the requested range plus
// the per-day entries in chronological order. Produced atomically by one
// fetch and never mutated afterwards.
type AvailabilityReport struct {
	StartDate time.Time
	Days      int
	Entries   []DayAvailability
}
