package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/siting-explorer/internal/adapter/http"
	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
	"github.com/couchcryptid/siting-explorer/internal/pipeline"
)

// stubSource serves Loudoun County, VA and Autauga County, AL.
type stubSource struct{}

func (stubSource) Fingerprint(_ context.Context) (string, error) { return "stub", nil }

func (stubSource) Load(_ context.Context) (domain.MasterSources, error) {
	ids := []string{"51107", "01001"}
	table := func(vals map[string][]float64) *domain.Table {
		t, err := domain.NewTable(ids)
		if err != nil {
			panic(err)
		}
		for col, v := range vals {
			if err := t.AddColumn(col, v); err != nil {
				panic(err)
			}
		}
		return t
	}
	return domain.MasterSources{
		Grid: table(map[string][]float64{
			domain.ColumnTransmissionCap:         {90, 20},
			domain.ColumnInterconnectionTimeline: {90, 20},
			domain.ColumnHVLineProximity:         {90, 20},
		}),
		Future: table(map[string][]float64{
			domain.ColumnPowerDemandGrowth: {70, 70},
			domain.ColumnZoningEvolution:   {70, 70},
			domain.ColumnClimateResilience: {70, 70},
		}),
		Water:  table(map[string][]float64{domain.ColumnWater: {80, 40}}),
		Fiber:  table(map[string][]float64{domain.ColumnFiber: {90, 10}}),
		Land:   table(map[string][]float64{domain.ColumnLand: {50, 50}}),
		Zoning: table(map[string][]float64{domain.ColumnZoning: {50, 50}}),
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, warm bool) *httpadapter.Server {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	cache := pipeline.NewSnapshotCache(stubSource{}, 2, discardLogger(), metrics)
	explorer := pipeline.New(cache, pipeline.NewMemorySessionStore(), domain.DefaultCatalog(),
		domain.CoreMarkets(), discardLogger(), metrics)
	if warm {
		require.NoError(t, explorer.Warm(context.Background()))
	}
	return httpadapter.NewServer(":0", explorer, discardLogger())
}

func do(t *testing.T, srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestReadyzReturns503BeforeWarm(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, pipeline.ErrNotReady.Error(), body["error"])
}

func TestReadyzReturns200WhenWarm(t *testing.T) {
	rec := do(t, newTestServer(t, true), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode[map[string]string](t, rec)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCategories(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	type info struct {
		Key         string           `json:"key"`
		ScoreColumn string           `json:"score_column"`
		ColorScale  string           `json:"color_scale"`
		Metrics     []map[string]any `json:"metrics"`
		Regulatory  *struct {
			LocalSupport []string `json:"local_support"`
		} `json:"regulatory"`
	}
	cats := decode[[]info](t, rec)
	require.Len(t, cats, 6)

	assert.Equal(t, "power", cats[0].Key)
	assert.Equal(t, domain.ColumnPower, cats[0].ScoreColumn)
	assert.Equal(t, "Inferno", cats[0].ColorScale)
	require.NotEmpty(t, cats[0].Metrics)
	assert.Equal(t, "cost", cats[0].Metrics[0]["key"])
	assert.Equal(t, "range", cats[0].Metrics[0]["kind"])

	var regulatory *info
	for i := range cats {
		if cats[i].Key == "regulatory" {
			regulatory = &cats[i]
		}
	}
	require.NotNil(t, regulatory)
	require.NotNil(t, regulatory.Regulatory)
	assert.Empty(t, regulatory.Metrics)
	assert.Contains(t, regulatory.Regulatory.LocalSupport, "Very Positive")
}

func TestMarkets(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/api/v1/markets", "")
	require.Equal(t, http.StatusOK, rec.Code)

	markets := decode[[]domain.Market](t, rec)
	require.Len(t, markets, len(domain.CoreMarkets()))
	assert.Equal(t, "Central Oregon", markets[0].Name)
}

func TestScore(t *testing.T) {
	srv := newTestServer(t, false)

	t.Run("defaults", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/fiber/score", `{}`)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[domain.CategoryResult](t, rec)
		assert.InDelta(t, 70, res.Overall, 1e-9)
		assert.InDelta(t, 80, res.Scores["fiber_dist"], 1e-9)
	})

	t.Run("inputs", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/fiber/score",
			`{"inputs":{"fiber_dist":0,"subsea":0}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 100, decode[domain.CategoryResult](t, rec).Overall, 1e-9)
	})

	t.Run("regulatory", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/regulatory/score",
			`{"regulatory":{"permit_months":0,"local_support":"Very Positive",
			  "incentives":["Property tax abatement","Sales tax exemption","Investment tax credits","Job creation credits","Energy efficiency incentives"],
			  "security_measures":["24/7 security personnel","Perimeter fencing","Video surveillance","Access control systems","Background checks"]}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 100, decode[domain.CategoryResult](t, rec).Overall, 1e-9)
	})

	t.Run("zero weights", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/regulatory/score",
			`{"weights":{"permit":0,"incentive":0,"environment":0,"support":0,"security":0}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown label", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/land/score", `{"inputs":{"zoning":"Farmland"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "invalid_input", decode[httpadapter.ErrorResponse](t, rec).Error)
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/tides/score", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/categories/fiber/score", `{"input":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestThresholds(t *testing.T) {
	srv := newTestServer(t, false)

	rec := do(t, srv, http.MethodPut, "/api/v1/sessions/s1/thresholds/power", `{"min_score":40}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPut, "/api/v1/sessions/s1/thresholds/fiber", `{"inputs":{"fiber_dist":10}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		MinScore float64                `json:"min_score"`
		Result   *domain.CategoryResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// fiber_dist 10 of 25 inverted scores 60, subsea default scores 60.
	assert.InDelta(t, 60, resp.MinScore, 1e-9)
	require.NotNil(t, resp.Result)

	rec = do(t, srv, http.MethodGet, "/api/v1/sessions/s1/thresholds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	th := decode[map[string]float64](t, rec)
	assert.InDelta(t, 40, th["power"], 1e-9)
	assert.InDelta(t, 60, th["fiber"], 1e-9)

	rec = do(t, srv, http.MethodGet, "/api/v1/sessions/other/thresholds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string]float64](t, rec))
}

func TestPutThreshold_Errors(t *testing.T) {
	srv := newTestServer(t, false)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"out of range", "/api/v1/sessions/s/thresholds/power", `{"min_score":120}`, http.StatusUnprocessableEntity},
		{"empty body", "/api/v1/sessions/s/thresholds/power", `{}`, http.StatusBadRequest},
		{"malformed json", "/api/v1/sessions/s/thresholds/power", `{"min_score":`, http.StatusBadRequest},
		{"unknown category", "/api/v1/sessions/s/thresholds/tides", `{"min_score":10}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestMap(t *testing.T) {
	srv := newTestServer(t, true)

	rec := do(t, srv, http.MethodPut, "/api/v1/sessions/s1/thresholds/fiber", `{"min_score":50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/v1/sessions/s1/map", `{"categories":["fiber","power"],"priority":"fiber"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var layer struct {
		Priority   string `json:"priority"`
		ColorScale string `json:"color_scale"`
		Passing    int    `json:"passing"`
		Counties   []struct {
			FIPS     string   `json:"fips"`
			ColorVal *float64 `json:"color_val"`
		} `json:"counties"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &layer))
	assert.Equal(t, domain.ColumnFiber, layer.Priority)
	assert.Equal(t, "Viridis", layer.ColorScale)
	assert.Equal(t, 1, layer.Passing)
	require.Len(t, layer.Counties, 2)

	colors := map[string]*float64{}
	for _, c := range layer.Counties {
		colors[c.FIPS] = c.ColorVal
	}
	require.NotNil(t, colors["51107"])
	assert.InDelta(t, 90, *colors["51107"], 1e-9)
	assert.Nil(t, colors["01001"])
	assert.Contains(t, rec.Body.String(), `"color_val":null`)
}

func TestMap_Errors(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"no categories", `{"categories":[]}`, http.StatusUnprocessableEntity},
		{"priority not selected", `{"categories":["fiber"],"priority":"land"}`, http.StatusUnprocessableEntity},
		{"unknown market", `{"categories":["fiber"],"market":"Atlantis"}`, http.StatusNotFound},
		{"unknown category", `{"categories":["tides"]}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/v1/sessions/s/map", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRefreshAccepted(t *testing.T) {
	rec := do(t, newTestServer(t, true), http.MethodPost, "/api/v1/snapshot/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, false)
	for _, tc := range []struct{ method, path string }{
		{http.MethodDelete, "/api/v1/markets"},
		{http.MethodGet, "/api/v1/sessions/s1/thresholds/power"},
		{http.MethodGet, "/api/v1/sessions/s1/map"},
	} {
		rec := do(t, srv, tc.method, tc.path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
	}
}
