package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/pipeline"
)

// Explorer is the session surface served over HTTP. *pipeline.Explorer
// implements it.
type Explorer interface {
	sharedobs.ReadinessChecker
	Catalog() domain.Catalog
	Markets() domain.RegionMap
	ScoreCategory(cat domain.Category, inputs map[string]domain.Value) (domain.CategoryResult, error)
	Thresholds(ctx context.Context, session string) (map[domain.Category]float64, error)
	SetThreshold(ctx context.Context, session string, cat domain.Category, minScore float64) error
	SetThresholdFromInputs(ctx context.Context, session string, cat domain.Category, inputs map[string]domain.Value) (domain.CategoryResult, error)
	SetRegulatoryThreshold(ctx context.Context, session string, in domain.RegulatoryInputs, w domain.RegulatoryWeights) (domain.CategoryResult, error)
	Evaluate(ctx context.Context, req pipeline.Request) (*domain.MapLayer, error)
	Refresh()
}

// Server exposes the explorer API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	explorer   Explorer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, explorer Explorer, logger *slog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		explorer: explorer,
		logger:   logger,
	}

	router.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", sharedobs.ReadinessHandler(explorer)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Registered on the root router: method mismatches must answer 405.
	api := func(method, path string, h http.HandlerFunc) {
		router.Handle("/api/v1"+path, s.logRequests(h)).Methods(method)
	}
	api(http.MethodGet, "/categories", s.handleCategories)
	api(http.MethodPost, "/categories/{category}/score", s.handleScore)
	api(http.MethodGet, "/markets", s.handleMarkets)
	api(http.MethodGet, "/sessions/{session}/thresholds", s.handleGetThresholds)
	api(http.MethodPut, "/sessions/{session}/thresholds/{category}", s.handlePutThreshold)
	api(http.MethodPost, "/sessions/{session}/map", s.handleMap)
	api(http.MethodPost, "/snapshot/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("api request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
