package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8012, cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.CatalogBackend)
	assert.Equal(t, 20, cfg.SearchDefaultLimit)
	assert.Equal(t, 100, cfg.SearchMaxLimit)
	assert.Equal(t, 5, cfg.TopRatedMinReviews)
	assert.Equal(t, 50, cfg.ConversionMinViews)
	assert.Equal(t, 7, cfg.TrendingWindowDays)
	assert.Equal(t, 2, cfg.AutocompleteMinChars)
	assert.Equal(t, time.Minute, cfg.CacheTTLDuration())
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaDLQEnabled)
	assert.Equal(t, []string{"127.0.0.1/32", "::1/128"}, cfg.PprofCIDRs)
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
	assert.Equal(t, 100, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DISCOVERY_HTTP_PORT", "9000")
	t.Setenv("CATALOG_BACKEND", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TOP_RATED_MIN_REVIEWS", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, BackendMemory, cfg.CatalogBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.TopRatedMinReviews)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "DISCOVERY_HTTP_PORT", "70000"},
		{"backend", "CATALOG_BACKEND", "sqlite"},
		{"sample rate", "OTEL_SAMPLE_RATE", "1.5"},
		{"default limit", "SEARCH_DEFAULT_LIMIT", "0"},
		{"max below default", "SEARCH_MAX_LIMIT", "10"},
		{"min views", "CONVERSION_MIN_VIEWS", "0"},
		{"window", "TRENDING_DEFAULT_WINDOW_DAYS", "0"},
		{"rate limit", "RATE_LIMIT_RPS", "-1"},
		{"not a number", "REDIS_PORT", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestConfig_Derived(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("DISCOVERY_DB_NAME", "catalog")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("LOG_SLOW_QUERY_MS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, "catalog", pg.DBName)
	assert.Equal(t, int32(20), pg.MaxConns)

	assert.Equal(t, "cache:6379", cfg.Redis().Addr())
	assert.Equal(t, 50*time.Millisecond, cfg.SlowQueryThreshold())

	tc := cfg.Tracing("discovery")
	assert.Equal(t, "discovery", tc.ServiceName)
	assert.False(t, tc.Enabled)
}
