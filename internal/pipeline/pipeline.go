package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
)

var (
	// ErrNoCategories rejects an evaluation with nothing selected.
	ErrNoCategories = errors.New("pick at least one category")
	// ErrPriorityNotSelected rejects a priority category outside the selection.
	ErrPriorityNotSelected = errors.New("priority category is not selected")
	// ErrInvalidThreshold rejects a minimum score outside [0, 100].
	ErrInvalidThreshold = errors.New("threshold must be within [0, 100]")
	// ErrNotReady is returned before the first master table is built.
	ErrNotReady = errors.New("master table has not been built yet")
)

// LayerSink receives every rendered layer, for example a downstream tile renderer.
type LayerSink interface {
	PublishLayer(ctx context.Context, layer *domain.MapLayer) error
}

// Request selects what the map shows for one interaction.
type Request struct {
	Session    string            `json:"-"`
	Categories []domain.Category `json:"categories"`
	Priority   domain.Category   `json:"priority"`
	Market     string            `json:"market,omitempty"`
}

// Explorer recomputes map layers from the cached master table and each
// session's thresholds.
type Explorer struct {
	cache    *SnapshotCache
	sessions SessionStore
	catalog  domain.Catalog
	markets  domain.RegionMap
	geocoder domain.Geocoder
	sink     LayerSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	refresh  chan struct{}
}

// Option configures optional Explorer collaborators.
type Option func(*Explorer)

// WithGeocoder centers zoomed market views. Without one layers carry no center.
func WithGeocoder(g domain.Geocoder) Option {
	return func(e *Explorer) { e.geocoder = g }
}

// WithSink publishes every evaluated layer.
func WithSink(s LayerSink) Option {
	return func(e *Explorer) { e.sink = s }
}

// New creates an Explorer.
func New(cache *SnapshotCache, sessions SessionStore, catalog domain.Catalog, markets domain.RegionMap,
	logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Explorer {
	e := &Explorer{
		cache:    cache,
		sessions: sessions,
		catalog:  catalog,
		markets:  markets,
		logger:   logger,
		metrics:  metrics,
		refresh:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the metric definitions in use.
func (e *Explorer) Catalog() domain.Catalog { return e.catalog }

// Markets returns the core markets available for zooming.
func (e *Explorer) Markets() domain.RegionMap { return e.markets }

// CheckReadiness returns nil once a master table has been built.
func (e *Explorer) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// Warm builds the master table for the current backing data.
func (e *Explorer) Warm(ctx context.Context) error {
	snap, err := e.cache.Get(ctx)
	if err != nil {
		return err
	}
	e.ready.Store(true)
	e.logger.Debug("master table ready", "counties", snap.Master.Len(), "built_at", snap.BuiltAt)
	return nil
}

// Refresh asks Run to invalidate the cache and rebuild. It never blocks;
// refreshes requested while one is pending are coalesced.
func (e *Explorer) Refresh() {
	select {
	case e.refresh <- struct{}{}:
	default:
	}
}

// Run warms the master table, retrying with backoff, and then rebuilds it on
// every Refresh until ctx is cancelled.
func (e *Explorer) Run(ctx context.Context) error {
	e.logger.Info("explorer started")
	if !e.warmWithBackoff(ctx) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("explorer stopping", "reason", ctx.Err())
			return nil
		case <-e.refresh:
			e.cache.Invalidate()
			if !e.warmWithBackoff(ctx) {
				return nil
			}
		}
	}
}

// warmWithBackoff retries Warm until it succeeds. Returns false if ctx ends first.
func (e *Explorer) warmWithBackoff(ctx context.Context) bool {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second
	for {
		err := e.Warm(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		e.logger.Error("build master table failed", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

// Evaluate filters the master table by the session's thresholds for the
// selected categories and projects the priority category's score onto the
// map. Categories without a stored threshold use 0.
func (e *Explorer) Evaluate(ctx context.Context, req Request) (*domain.MapLayer, error) {
	start := time.Now()
	layer, err := e.evaluate(ctx, req)
	switch {
	case err == nil:
		e.metrics.Evaluations.WithLabelValues("success").Inc()
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
		e.metrics.PassingCounties.Observe(float64(layer.Passing))
	case isRequestError(err):
		e.metrics.Evaluations.WithLabelValues("rejected").Inc()
	default:
		e.metrics.Evaluations.WithLabelValues("error").Inc()
		e.logger.Error("evaluate failed", "error", err, "session", req.Session)
	}
	return layer, err
}

func (e *Explorer) evaluate(ctx context.Context, req Request) (*domain.MapLayer, error) {
	columns, err := selectedColumns(req.Categories)
	if err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = req.Categories[0]
	}
	priorityCol, err := priority.ScoreColumn()
	if err != nil {
		return nil, err
	}
	if _, ok := columns[priorityCol]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrPriorityNotSelected, priority)
	}

	var market *domain.Market
	if req.Market != "" {
		m, err := e.markets.Market(req.Market)
		if err != nil {
			return nil, err
		}
		market = &m
	}

	stored, err := e.sessions.Thresholds(ctx, req.Session)
	if err != nil {
		return nil, fmt.Errorf("read session thresholds: %w", err)
	}
	thresholds := make(domain.Thresholds, len(columns))
	for col := range columns {
		thresholds[col] = stored[col]
	}

	snap, err := e.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load master table: %w", err)
	}
	e.ready.Store(true)

	var allow domain.AllowList
	if market != nil {
		if allow, err = domain.NewAllowList(market.Counties...); err != nil {
			return nil, err
		}
	}
	projected, err := domain.Project(domain.Filter(snap.Master, thresholds), priorityCol, allow)
	if err != nil {
		return nil, err
	}
	layer, err := domain.NewMapLayer(projected, priorityCol, thresholds, market)
	if err != nil {
		return nil, err
	}
	if market != nil {
		layer.Center = domain.LocateMarket(ctx, *market, e.geocoder, e.logger)
	}

	e.publish(ctx, layer)
	e.logger.Debug("layer evaluated",
		"session", req.Session,
		"priority", priorityCol,
		"market", req.Market,
		"passing", layer.Passing,
	)
	return layer, nil
}

// publish hands the layer to the sink. A failed publish is logged and counted
// but does not fail the interaction.
func (e *Explorer) publish(ctx context.Context, layer *domain.MapLayer) {
	if e.sink == nil {
		return
	}
	if err := e.sink.PublishLayer(ctx, layer); err != nil {
		e.metrics.PublishErrors.Inc()
		e.logger.Warn("publish layer failed", "error", err, "priority", layer.Priority)
		return
	}
	e.metrics.LayersPublished.Inc()
}

func selectedColumns(cats []domain.Category) (map[string]struct{}, error) {
	if len(cats) == 0 {
		return nil, ErrNoCategories
	}
	cols := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		col, err := c.ScoreColumn()
		if err != nil {
			return nil, err
		}
		cols[col] = struct{}{}
	}
	return cols, nil
}

// Thresholds returns the session's stored minimum score per category.
func (e *Explorer) Thresholds(ctx context.Context, session string) (map[domain.Category]float64, error) {
	stored, err := e.sessions.Thresholds(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("read session thresholds: %w", err)
	}
	out := make(map[domain.Category]float64, len(stored))
	for col, v := range stored {
		if cat, ok := domain.CategoryForColumn(col); ok {
			out[cat] = v
		}
	}
	return out, nil
}

// SetThreshold overwrites the session's minimum score for a category.
func (e *Explorer) SetThreshold(ctx context.Context, session string, cat domain.Category, minScore float64) error {
	col, err := cat.ScoreColumn()
	if err != nil {
		return err
	}
	if math.IsNaN(minScore) || minScore < domain.MinScore || minScore > domain.MaxScore {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, minScore)
	}
	if err := e.sessions.SetThreshold(ctx, session, col, minScore); err != nil {
		return fmt.Errorf("store threshold: %w", err)
	}
	e.metrics.ThresholdUpdates.Inc()
	e.logger.Debug("threshold set", "session", session, "category", cat, "min_score", minScore)
	return nil
}

// ScoreCategory scores a mean-scored category from native inputs.
func (e *Explorer) ScoreCategory(cat domain.Category, inputs map[string]domain.Value) (domain.CategoryResult, error) {
	spec, err := e.catalog.Spec(cat)
	if err != nil {
		return domain.CategoryResult{}, err
	}
	return domain.ScoreCategory(inputs, spec)
}

// SetThresholdFromInputs scores the category from native inputs and stores
// the overall score as the session's minimum for it.
func (e *Explorer) SetThresholdFromInputs(ctx context.Context, session string, cat domain.Category, inputs map[string]domain.Value) (domain.CategoryResult, error) {
	res, err := e.ScoreCategory(cat, inputs)
	if err != nil {
		return res, err
	}
	return res, e.SetThreshold(ctx, session, cat, res.Overall)
}

// SetRegulatoryThreshold scores the regulatory category and stores the
// overall score as the session's minimum for it.
func (e *Explorer) SetRegulatoryThreshold(ctx context.Context, session string, in domain.RegulatoryInputs, w domain.RegulatoryWeights) (domain.CategoryResult, error) {
	res, err := domain.ScoreRegulatory(in, w)
	if err != nil {
		return res, err
	}
	return res, e.SetThreshold(ctx, session, domain.CategoryRegulatory, res.Overall)
}

// isRequestError reports whether err comes from the caller's selection rather
// than from the data or the stores.
func isRequestError(err error) bool {
	for _, target := range []error{
		ErrNoCategories, ErrPriorityNotSelected, ErrInvalidThreshold,
		domain.ErrUnknownCategory, domain.ErrUnknownRegion,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
