package domain

import (
	"context"
	"log/slog"
)

// MapCenter is the point a zoomed map view is centered on.
type MapCenter struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	PlaceName  string  `json:"place_name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// LocateMarket geocodes a market's anchor place. It returns nil when geocoder
// is nil, the lookup fails, or the provider has no match; the renderer then
// fits the view to the market's counties instead.
func LocateMarket(ctx context.Context, m Market, geocoder Geocoder, logger *slog.Logger) *MapCenter {
	if geocoder == nil || m.Place == "" {
		return nil
	}

	found, err := geocoder.Geocode(ctx, m.Place, m.State)
	if err != nil {
		logger.Warn("market geocoding failed",
			"market", m.Name,
			"place", m.Place,
			"state", m.State,
			"error", err,
		)
		return nil
	}
	if !found.Found() {
		logger.Debug("market geocoding returned no match", "market", m.Name)
		return nil
	}
	return &MapCenter{
		Lat:        found.Lat,
		Lon:        found.Lon,
		PlaceName:  found.Label,
		Confidence: found.Relevance,
	}
}
