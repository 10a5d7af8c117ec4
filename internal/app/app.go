package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/ecommerce-discovery/internal/cache"
	"github.com/utafrali/ecommerce-discovery/internal/config"
	"github.com/utafrali/ecommerce-discovery/internal/event"
	handler "github.com/utafrali/ecommerce-discovery/internal/handler/http"
	"github.com/utafrali/ecommerce-discovery/internal/query"
	"github.com/utafrali/ecommerce-discovery/internal/ranking"
	"github.com/utafrali/ecommerce-discovery/internal/repository"
	"github.com/utafrali/ecommerce-discovery/internal/repository/memory"
	"github.com/utafrali/ecommerce-discovery/internal/repository/postgres"
	"github.com/utafrali/ecommerce-discovery/internal/seed"
	"github.com/utafrali/ecommerce-discovery/internal/service"
	"github.com/utafrali/ecommerce-discovery/migrations"
	"github.com/utafrali/ecommerce-discovery/pkg/database"
	"github.com/utafrali/ecommerce-discovery/pkg/health"
	pkgkafka "github.com/utafrali/ecommerce-discovery/pkg/kafka"
	"github.com/utafrali/ecommerce-discovery/pkg/middleware"
	"github.com/utafrali/ecommerce-discovery/pkg/tracing"
)

// ServiceName identifies the service in logs, metrics, traces and events.
const ServiceName = "discovery"

const (
	shutdownTimeout = 10 * time.Second
	// dedupTTL bounds how long handled catalog event ids are remembered.
	dedupTTL = time.Hour
)

// App wires together all dependencies and runs the discovery service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	publisher      *event.SearchPublisher
	consumer       *pkgkafka.Consumer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	catalog, err := a.openCatalog(ctx, healthHandler)
	if err != nil {
		a.release()
		return nil, err
	}

	resultCache := a.openCache(ctx, healthHandler)

	// Kafka: search analytics out, catalog invalidations in.
	var recorder service.SearchRecorder = event.NoopRecorder{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.publisher = event.NewSearchPublisher(a.producer, ServiceName, logger)
		recorder = a.publisher

		consumerCfg := pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topics:   event.InvalidationTopics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}
		if cfg.KafkaDLQEnabled {
			a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
			consumerCfg.DeadLetter = a.dlq
		}
		invalidator := event.NewInvalidator(resultCache, logger)
		handle := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(dedupTTL), invalidator.Handle, logger)
		a.consumer = pkgkafka.NewConsumer(consumerCfg, handle, logger)

		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.InvalidationTopics()),
		)
	}

	opts := Options(cfg)
	searchService := service.NewSearchService(catalog, resultCache, recorder, opts, logger)
	rankingService := service.NewRankingService(catalog, resultCache, opts, logger)

	router := handler.NewRouter(searchService, rankingService, healthHandler, handler.RouterConfig{
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins},
		RateLimit:      middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		PprofCIDRs:     cfg.PprofCIDRs,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		CacheMaxAge:    cfg.CacheTTL,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Options maps configuration onto the engine settings.
func Options(cfg *config.Config) service.Options {
	return service.Options{
		Limits: query.Limits{
			DefaultLimit: cfg.SearchDefaultLimit,
			MaxLimit:     cfg.SearchMaxLimit,
		},
		Thresholds: ranking.Thresholds{
			MinReviews: cfg.TopRatedMinReviews,
			MinViews:   cfg.ConversionMinViews,
		},
		TrendingWindowDays:    cfg.TrendingWindowDays,
		AutocompleteMinPrefix: cfg.AutocompleteMinChars,
	}
}

func (a *App) openCatalog(ctx context.Context, hh *health.Handler) (repository.Catalog, error) {
	if a.cfg.CatalogBackend == config.BackendMemory {
		catalog := memory.New()
		if a.cfg.CatalogSeed != "" {
			if err := catalog.LoadFile(a.cfg.CatalogSeed); err != nil {
				return nil, fmt.Errorf("seed memory catalog: %w", err)
			}
		}
		a.logger.Info("in-memory catalog initialized", slog.String("seed", a.cfg.CatalogSeed))
		return catalog, nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.Int("port", a.cfg.PostgresPort),
		slog.String("database", a.cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, ServiceName)
	if a.cfg.SlowQueryMs > 0 {
		database.SetSlowQueryLogging(a.cfg.SlowQueryThreshold(), a.logger)
	}

	hh.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	return postgres.NewCatalog(pool), nil
}

// openCache connects to Redis when caching is enabled. An unreachable Redis
// is logged and the client kept, since every cache error falls through to
// the catalog anyway.
func (a *App) openCache(ctx context.Context, hh *health.Handler) cache.Cache {
	if !a.cfg.CacheEnabled {
		return cache.Noop{}
	}

	client, err := database.NewRedisClient(ctx, *a.cfg.Redis())
	if err != nil {
		a.logger.Warn("redis unavailable at startup, serving uncached until it recovers",
			slog.String("error", err.Error()),
		)
	}
	a.redis = client
	hh.RegisterNonCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return cache.NewRedis(client, a.cfg.CacheTTLDuration())
}

// Migrate applies the embedded schema to the configured catalog database.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.CatalogBackend != config.BackendPostgres {
		return fmt.Errorf("migrations require the %s catalog backend, got %q", config.BackendPostgres, cfg.CatalogBackend)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

// Seed loads a generated catalog into the configured database in a single
// transaction.
func Seed(ctx context.Context, cfg *config.Config, catalog *memory.Seed, logger *slog.Logger) (err error) {
	if cfg.CatalogBackend != config.BackendPostgres {
		return fmt.Errorf("seeding requires the %s catalog backend, got %q", config.BackendPostgres, cfg.CatalogBackend)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = seed.Load(ctx, tx, catalog, logger); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	logger.Info("catalog seeded", slog.Int("products", len(catalog.Products)))
	return nil
}

// Run starts the HTTP server and Kafka consumer, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("catalog", a.cfg.CatalogBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// In-flight search events are flushed before the producer goes away.
	if a.publisher != nil {
		a.publisher.Wait()
	}

	errs = append(errs, a.closeClients(shutdownCtx)...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeClients(ctx context.Context) []error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}

// release frees whatever NewApp managed to open before failing.
func (a *App) release() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = a.closeClients(ctx)
}
