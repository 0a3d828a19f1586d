package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
)

// Source produces the raw per-category tables and identifies their version.
type Source interface {
	Load(ctx context.Context) (domain.MasterSources, error)
	Fingerprint(ctx context.Context) (string, error)
}

// Snapshot is an immutable master table built from one version of the
// backing data. Callers must not modify Master.
type Snapshot struct {
	Fingerprint string
	Master      *domain.Table
	BuiltAt     time.Time
}

// SnapshotCache memoizes master tables by source fingerprint.
//
// The current snapshot is served without touching the source until
// Invalidate is called; the next Get then re-fingerprints the source and
// either reuses a cached build for that fingerprint or builds a new one.
// Concurrent builds of the same fingerprint are collapsed into one.
type SnapshotCache struct {
	source  Source
	builds  *lru.Cache[string, *Snapshot]
	group   singleflight.Group
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.RWMutex
	current *Snapshot
	gen     uint64 // bumped by Invalidate
}

// NewSnapshotCache creates a cache holding up to size master tables.
func NewSnapshotCache(source Source, size int, logger *slog.Logger, metrics *observability.Metrics) *SnapshotCache {
	builds, _ := lru.New[string, *Snapshot](max(size, 1)) // only fails for size <= 0
	return &SnapshotCache{
		source:  source,
		builds:  builds,
		logger:  logger,
		metrics: metrics,
	}
}

// Get returns the master table for the current backing data. A failed load
// leaves no snapshot behind; the next Get retries.
func (c *SnapshotCache) Get(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	cur, gen := c.current, c.gen
	c.mu.RUnlock()
	if cur != nil {
		c.metrics.SnapshotCache.WithLabelValues("hit").Inc()
		return cur, nil
	}

	fp, err := c.source.Fingerprint(ctx)
	if err != nil {
		c.metrics.MasterBuilds.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fingerprint source: %w", err)
	}
	if snap, ok := c.builds.Get(fp); ok {
		c.metrics.SnapshotCache.WithLabelValues("hit").Inc()
		c.setCurrent(gen, snap)
		return snap, nil
	}
	c.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(fp, func() (any, error) {
		// A flight that finished after our lookup may already have stored it.
		if snap, ok := c.builds.Get(fp); ok {
			return snap, nil
		}
		snap, err := c.build(ctx, fp)
		if err != nil {
			return nil, err
		}
		c.builds.Add(fp, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	snap := v.(*Snapshot)
	c.setCurrent(gen, snap)
	return snap, nil
}

func (c *SnapshotCache) build(ctx context.Context, fp string) (*Snapshot, error) {
	start := time.Now()
	src, err := c.source.Load(ctx)
	if err != nil {
		c.metrics.MasterBuilds.WithLabelValues("error").Inc()
		return nil, err
	}
	master, err := domain.BuildMaster(src)
	if err != nil {
		c.metrics.MasterBuilds.WithLabelValues("error").Inc()
		return nil, err
	}
	elapsed := time.Since(start)

	c.metrics.MasterBuilds.WithLabelValues("success").Inc()
	c.metrics.MasterBuildDuration.Observe(elapsed.Seconds())
	c.metrics.MasterRows.Set(float64(master.Len()))
	c.logger.Info("master table built",
		"fingerprint", shortFingerprint(fp),
		"counties", master.Len(),
		"duration", elapsed,
	)
	return &Snapshot{Fingerprint: fp, Master: master, BuiltAt: domain.Now()}, nil
}

// setCurrent publishes s unless the cache was invalidated while it was being
// resolved, in which case the next Get fingerprints again.
func (c *SnapshotCache) setCurrent(gen uint64, s *Snapshot) {
	c.mu.Lock()
	if c.gen == gen {
		c.current = s
	}
	c.mu.Unlock()
}

// Current returns the snapshot being served, or nil before the first
// successful Get or after Invalidate.
func (c *SnapshotCache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Invalidate marks the backing data as possibly changed.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.gen++
	c.mu.Unlock()
	c.metrics.SnapshotInvalidated.Inc()
}

// Purge drops every cached build.
func (c *SnapshotCache) Purge() {
	c.Invalidate()
	c.builds.Purge()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
