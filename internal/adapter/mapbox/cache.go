package mapbox

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
)

// CachedGeocoder keeps recent market lookups in memory. Markets are few and
// fixed, so after warm-up every zoomed view is served without an API call.
type CachedGeocoder struct {
	inner   domain.Geocoder
	places  *lru.Cache[string, domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with an LRU of at most maxEntries places.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	places, _ := lru.New[string, domain.Place](max(maxEntries, 1)) // only fails for size <= 0
	return &CachedGeocoder{inner: inner, places: places, metrics: metrics}
}

func placeKey(place, state string) string {
	return strings.ToUpper(strings.TrimSpace(place)) + "|" + strings.ToUpper(strings.TrimSpace(state))
}

// Geocode implements domain.Geocoder. Misses and errors are not cached so a
// later lookup retries the provider.
func (c *CachedGeocoder) Geocode(ctx context.Context, place, state string) (domain.Place, error) {
	key := placeKey(place, state)
	if p, ok := c.places.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues(methodForward, "hit").Inc()
		return p, nil
	}
	c.metrics.GeocodeCache.WithLabelValues(methodForward, "miss").Inc()

	p, err := c.inner.Geocode(ctx, place, state)
	if err != nil {
		return p, err
	}
	if p.Found() {
		c.places.Add(key, p)
	}
	return p, nil
}
