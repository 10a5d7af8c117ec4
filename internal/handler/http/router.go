package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ecommerce-discovery/internal/service"
	"github.com/utafrali/ecommerce-discovery/pkg/health"
	"github.com/utafrali/ecommerce-discovery/pkg/middleware"
)

const serviceName = "discovery"

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimit      middleware.RateLimitConfig
	// PprofCIDRs may reach /debug/pprof. Empty disables profiling routes.
	PprofCIDRs     []string
	RequestTimeout time.Duration
	// CacheMaxAge is the Cache-Control max-age, in seconds, of ranking and
	// facet responses. Zero disables the header.
	CacheMaxAge int
}

// NewRouter creates a chi router with all discovery routes registered.
func NewRouter(
	searchService *service.SearchService,
	rankingService *service.RankingService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// One bucket per client across all of /api/v1.
	limit := middleware.RateLimit(cfg.RateLimit, logger)

	searchHandler := NewSearchHandler(searchService, logger)
	rankingHandler := NewRankingHandler(rankingService, logger)

	r.Route("/api/v1/search", func(r chi.Router) {
		r.Use(limit)
		r.Get("/", searchHandler.Search)
		r.Get("/advanced", searchHandler.Advanced)
		r.Get("/autocomplete", searchHandler.Autocomplete)
	})

	r.Route("/api/v1/stores/{storeID}", func(r chi.Router) {
		r.Use(limit)
		r.Use(middleware.CacheControl(cfg.CacheMaxAge))
		r.Get("/facets", searchHandler.Facets)
		r.Get("/rankings/{board}", rankingHandler.Leaderboard)
		r.Get("/trending", rankingHandler.Trending)
	})

	return r
}
