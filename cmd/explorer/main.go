package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/siting-explorer/internal/adapter/fswatch"
	httpadapter "github.com/couchcryptid/siting-explorer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/siting-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/siting-explorer/internal/adapter/mapbox"
	redisadapter "github.com/couchcryptid/siting-explorer/internal/adapter/redis"
	"github.com/couchcryptid/siting-explorer/internal/catalog"
	"github.com/couchcryptid/siting-explorer/internal/config"
	"github.com/couchcryptid/siting-explorer/internal/dataset"
	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
	"github.com/couchcryptid/siting-explorer/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("explorer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	paths := dataset.Paths{
		Grid:       cfg.GridPath,
		Future:     cfg.FuturePath,
		Water:      cfg.WaterPath,
		Fiber:      cfg.FiberPath,
		CountyFIPS: cfg.CountyFIPSPath,
	}

	var source pipeline.Source
	switch cfg.DatasetSource {
	case config.SourceSQL:
		var db *sqlx.DB
		db, err = dataset.Open(ctx, cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		source = dataset.NewSQLSource(db, cfg.SyntheticSeed, logger)
		logger.Info("dataset source", "kind", cfg.DatasetSource, "driver", cfg.DBDriver)
	default:
		source = dataset.NewFileSource(paths, cfg.SyntheticSeed, logger)
		logger.Info("dataset source", "kind", cfg.DatasetSource, "dir", cfg.DataDir)
	}

	var sessions pipeline.SessionStore = pipeline.NewMemorySessionStore()
	if cfg.SessionStore == config.StoreRedis {
		client, err := redisadapter.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		sessions = redisadapter.NewSessionStore(client, cfg.SessionTTL)
		logger.Info("redis session store enabled", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	}

	var opts []pipeline.Option

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		var geocoder domain.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		opts = append(opts, pipeline.WithGeocoder(geocoder))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithSink(writer))
		logger.Info("layer publishing enabled", "topic", cfg.KafkaLayerTopic, "brokers", cfg.KafkaBrokers)
	}

	cache := pipeline.NewSnapshotCache(source, cfg.SnapshotCacheSize, logger, metrics)
	explorer := pipeline.New(cache, sessions, cat, domain.CoreMarkets(), logger, metrics, opts...)

	if cfg.WatchEnabled && cfg.DatasetSource == config.SourceFiles {
		watcher, err := fswatch.New(paths.List(), explorer.Refresh, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("file watcher error", "error", err)
			}
		}()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, explorer, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Build the master table and rebuild on refresh.
	go func() {
		if err := explorer.Run(ctx); err != nil {
			logger.Error("explorer error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	return nil
}
