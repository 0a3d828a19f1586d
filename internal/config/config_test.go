package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Equal(t, SourceFiles, cfg.DatasetSource)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "doe_grid_constraints.csv"), cfg.GridPath)
	assert.Equal(t, filepath.Join("data", "future_scalability.parquet"), cfg.FuturePath)
	assert.Equal(t, filepath.Join("data", "county_water_availability_full.csv"), cfg.WaterPath)
	assert.Equal(t, filepath.Join("data", "us_county_fips.json"), cfg.CountyFIPSPath)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, uint64(42), cfg.SyntheticSeed)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, 4, cfg.SnapshotCacheSize)
	assert.True(t, cfg.WatchEnabled)

	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "map-layers", cfg.KafkaLayerTopic)

	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/srv/siting")
	t.Setenv("FIBER_PATH", "/tmp/fiber.csv")
	t.Setenv("SYNTHETIC_SEED", "7")
	t.Setenv("CATALOG_PATH", "/etc/siting/catalog.yaml")
	t.Setenv("SNAPSHOT_CACHE_SIZE", "2")
	t.Setenv("WATCH_ENABLED", "false")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_LAYER_TOPIC", "custom-layers")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, filepath.Join("/srv/siting", "doe_grid_constraints.csv"), cfg.GridPath)
	assert.Equal(t, "/tmp/fiber.csv", cfg.FiberPath)
	assert.Equal(t, uint64(7), cfg.SyntheticSeed)
	assert.Equal(t, "/etc/siting/catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, 2, cfg.SnapshotCacheSize)
	assert.False(t, cfg.WatchEnabled)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-layers", cfg.KafkaLayerTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_SQLSource(t *testing.T) {
	t.Setenv("DATASET_SOURCE", "sql")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://siting@localhost/siting?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SourceSQL, cfg.DatasetSource)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.False(t, cfg.WatchEnabled, "watching only applies to file sources")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"mapbox timeout", map[string]string{"MAPBOX_TIMEOUT": "bad"}, "MAPBOX_TIMEOUT"},
		{"session ttl", map[string]string{"SESSION_TTL": "0s"}, "SESSION_TTL"},
		{"seed", map[string]string{"SYNTHETIC_SEED": "-3"}, "SYNTHETIC_SEED"},
		{"cache size", map[string]string{"SNAPSHOT_CACHE_SIZE": "0"}, "SNAPSHOT_CACHE_SIZE"},
		{"dataset source", map[string]string{"DATASET_SOURCE": "s3"}, "DATASET_SOURCE"},
		{"sql without dsn", map[string]string{"DATASET_SOURCE": "sql"}, "DB_DSN"},
		{"sql driver", map[string]string{"DATASET_SOURCE": "sql", "DB_DRIVER": "mysql", "DB_DSN": "x"}, "DB_DRIVER"},
		{"session store", map[string]string{"SESSION_STORE": "memcached"}, "SESSION_STORE"},
		{"mapbox without token", map[string]string{"MAPBOX_ENABLED": "true"}, "MAPBOX_TOKEN"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
