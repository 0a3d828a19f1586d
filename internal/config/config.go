package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Dataset sources.
const (
	SourceFiles = "files"
	SourceSQL   = "sql"
)

// Session stores.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Default backing file names under DATA_DIR.
const (
	DefaultGridFile       = "doe_grid_constraints.csv"
	DefaultFutureFile     = "future_scalability.parquet"
	DefaultWaterFile      = "county_water_availability_full.csv"
	DefaultFiberFile      = "bdc_us_mobile_broadband_summary_by_geography_D24_27may2025.csv"
	DefaultCountyFIPSFile = "us_county_fips.json"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset loading.
	DatasetSource  string
	DataDir        string
	GridPath       string
	FuturePath     string
	WaterPath      string
	FiberPath      string
	CountyFIPSPath string
	DBDriver       string
	DBDSN          string
	SyntheticSeed  uint64
	CatalogPath    string

	SnapshotCacheSize int
	WatchEnabled      bool

	// Session thresholds.
	SessionStore string
	RedisAddr    string
	SessionTTL   time.Duration

	// Map layer publishing.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaLayerTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	sessionTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("SESSION_TTL", "24h"))
	if err != nil || sessionTTL <= 0 {
		return nil, errors.New("invalid SESSION_TTL")
	}

	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("SYNTHETIC_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SYNTHETIC_SEED")
	}

	cacheSize, err := parsePositiveInt("SNAPSHOT_CACHE_SIZE", 4)
	if err != nil {
		return nil, err
	}

	source := sharedcfg.EnvOrDefault("DATASET_SOURCE", SourceFiles)
	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetSource:  source,
		DataDir:        dataDir,
		GridPath:       sharedcfg.EnvOrDefault("GRID_PATH", filepath.Join(dataDir, DefaultGridFile)),
		FuturePath:     sharedcfg.EnvOrDefault("FUTURE_PATH", filepath.Join(dataDir, DefaultFutureFile)),
		WaterPath:      sharedcfg.EnvOrDefault("WATER_PATH", filepath.Join(dataDir, DefaultWaterFile)),
		FiberPath:      sharedcfg.EnvOrDefault("FIBER_PATH", filepath.Join(dataDir, DefaultFiberFile)),
		CountyFIPSPath: sharedcfg.EnvOrDefault("COUNTY_FIPS_PATH", filepath.Join(dataDir, DefaultCountyFIPSFile)),
		DBDriver:       sharedcfg.EnvOrDefault("DB_DRIVER", "sqlite"),
		DBDSN:          os.Getenv("DB_DSN"),
		SyntheticSeed:  seed,
		CatalogPath:    os.Getenv("CATALOG_PATH"),

		SnapshotCacheSize: cacheSize,
		WatchEnabled:      parseBool("WATCH_ENABLED", source == SourceFiles),

		SessionStore: sharedcfg.EnvOrDefault("SESSION_STORE", StoreMemory),
		RedisAddr:    sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		SessionTTL:   sessionTTL,

		KafkaEnabled:    parseBool("KAFKA_ENABLED", false),
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLayerTopic: sharedcfg.EnvOrDefault("KAFKA_LAYER_TOPIC", "map-layers"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	switch cfg.DatasetSource {
	case SourceFiles:
	case SourceSQL:
		if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
			return nil, errors.New("DB_DRIVER must be sqlite or postgres")
		}
		if cfg.DBDSN == "" {
			return nil, errors.New("DB_DSN is required when DATASET_SOURCE is sql")
		}
	default:
		return nil, errors.New("DATASET_SOURCE must be files or sql")
	}
	switch cfg.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required when SESSION_STORE is redis")
		}
	default:
		return nil, errors.New("SESSION_STORE must be memory or redis")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaLayerTopic == "" {
			return nil, errors.New("KAFKA_LAYER_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}
