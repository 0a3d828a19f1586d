package domain

import "context"

// Place is a geocoded anchor point for a market.
type Place struct {
	Lat       float64
	Lon       float64
	Label     string  // provider's full name, e.g. "Ashburn, Virginia, United States"
	Relevance float64 // 0 to 1
}

// Found reports whether the provider matched anything.
func (p Place) Found() bool { return p.Label != "" }

// Geocoder resolves a market's anchor place to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place, state string) (Place, error)
}
