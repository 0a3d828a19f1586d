package mapbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
)

const (
	placesURL     = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	methodForward = "forward"
)

// Client geocodes market anchors with the Mapbox Geocoding v5 API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		baseURL: placesURL,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves "place, state" to the best US match. A query with no match
// returns the zero Place and no error.
func (c *Client) Geocode(ctx context.Context, place, state string) (domain.Place, error) {
	q := searchText(place, state)

	start := time.Now()
	found, err := c.search(ctx, q)
	c.metrics.GeocodeAPIDuration.WithLabelValues(methodForward).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !found.Found():
		outcome = "empty"
		c.logger.Debug("mapbox returned no features", "query", q)
	}
	c.metrics.GeocodeRequests.WithLabelValues(methodForward, outcome).Inc()
	return found, err
}

func searchText(place, state string) string {
	if state == "" {
		return place
	}
	return place + ", " + state
}

// endpoint restricts matches to US cities, towns and states.
func (c *Client) endpoint(q string) string {
	v := url.Values{}
	v.Set("access_token", c.token)
	v.Set("autocomplete", "false")
	v.Set("country", "us")
	v.Set("limit", "1")
	v.Set("types", "place,locality,region")
	return c.baseURL + "/" + url.PathEscape(q) + ".json?" + v.Encode()
}

func (c *Client) search(ctx context.Context, q string) (domain.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(q), nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("build geocode request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode %q: %w", q, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Place{}, fmt.Errorf("geocode %q: mapbox status %d: %s", q, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var fc featureCollection
	if err := jsoniter.ConfigFastest.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.Place{}, fmt.Errorf("decode geocode response: %w", err)
	}
	return fc.best(), nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    [2]float64 `json:"center"` // lon, lat
	PlaceName string     `json:"place_name"`
	Relevance float64    `json:"relevance"`
}

// best returns the top-ranked feature; Mapbox orders by relevance.
func (fc featureCollection) best() domain.Place {
	if len(fc.Features) == 0 {
		return domain.Place{}
	}
	f := fc.Features[0]
	return domain.Place{
		Lat:       f.Center[1],
		Lon:       f.Center[0],
		Label:     f.PlaceName,
		Relevance: f.Relevance,
	}
}
