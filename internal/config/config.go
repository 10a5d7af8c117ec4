package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/ecommerce-discovery/pkg/config"
	"github.com/utafrali/ecommerce-discovery/pkg/database"
	"github.com/utafrali/ecommerce-discovery/pkg/tracing"
)

// Catalog backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration for the discovery service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"0.1.0"`

	// HTTP server
	HTTPPort       int      `env:"DISCOVERY_HTTP_PORT" envDefault:"8012"`
	RequestTimeout int      `env:"DISCOVERY_REQUEST_TIMEOUT_SECONDS" envDefault:"15"`
	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"100"`
	PprofCIDRs     []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// Catalog backend selection (postgres or memory)
	CatalogBackend string `env:"CATALOG_BACKEND" envDefault:"postgres"`
	CatalogSeed    string `env:"CATALOG_SEED_FILE" envDefault:""`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB       string `env:"DISCOVERY_DB_NAME" envDefault:"discovery_db"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns       int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	SlowQueryMs      int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	CacheEnabled  bool   `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTL      int    `env:"CACHE_TTL_SECONDS" envDefault:"60"`

	// Kafka
	KafkaEnabled    bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID    string   `env:"KAFKA_GROUP_ID" envDefault:"discovery-service"`
	// Invalidations that exhaust their retries go to ecommerce.dlq.<topic>.
	KafkaDLQEnabled bool     `env:"KAFKA_DLQ_ENABLED" envDefault:"true"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Engine tuning
	SearchDefaultLimit   int `env:"SEARCH_DEFAULT_LIMIT" envDefault:"20"`
	SearchMaxLimit       int `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	TopRatedMinReviews   int `env:"TOP_RATED_MIN_REVIEWS" envDefault:"5"`
	ConversionMinViews   int `env:"CONVERSION_MIN_VIEWS" envDefault:"50"`
	TrendingWindowDays   int `env:"TRENDING_DEFAULT_WINDOW_DAYS" envDefault:"7"`
	AutocompleteMinChars int `env:"AUTOCOMPLETE_MIN_PREFIX" envDefault:"2"`
}

// Load reads configuration from the environment and the given .env files.
func Load(envFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, envFiles...); err != nil {
		return nil, fmt.Errorf("load discovery config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.CatalogBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("invalid catalog backend %q (want %s or %s)", c.CatalogBackend, BackendPostgres, BackendMemory)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTelSampleRate)
	}
	if c.SearchDefaultLimit < 1 || c.SearchMaxLimit < c.SearchDefaultLimit {
		return fmt.Errorf("invalid search limits: default=%d max=%d", c.SearchDefaultLimit, c.SearchMaxLimit)
	}
	if c.TopRatedMinReviews < 0 || c.ConversionMinViews < 1 {
		return fmt.Errorf("invalid ranking thresholds: min_reviews=%d min_views=%d", c.TopRatedMinReviews, c.ConversionMinViews)
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("invalid rate limit: rps=%v burst=%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.TrendingWindowDays < 1 {
		return fmt.Errorf("invalid trending window: %d", c.TrendingWindowDays)
	}
	if c.CacheTTL < 1 && c.CacheEnabled {
		return fmt.Errorf("invalid cache TTL: %d", c.CacheTTL)
	}
	return nil
}

// Postgres returns the connection settings for the catalog database.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		MaxConns: c.DBMaxConns,
		MinConns: c.DBMinConns,
	}
}

// Redis returns the connection settings for the result cache.
func (c *Config) Redis() *database.RedisConfig {
	return &database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry exporter settings.
func (c *Config) Tracing(service string) tracing.Config {
	return tracing.Config{
		ServiceName:    service,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlowQueryThreshold returns SlowQueryMs as a time.Duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMs) * time.Millisecond
}
