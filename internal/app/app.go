package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utafrali/storefront-search/internal/cache"
	cachememory "github.com/utafrali/storefront-search/internal/cache/memory"
	cacheredis "github.com/utafrali/storefront-search/internal/cache/redis"
	"github.com/utafrali/storefront-search/internal/config"
	"github.com/utafrali/storefront-search/internal/event"
	handler "github.com/utafrali/storefront-search/internal/handler/http"
	"github.com/utafrali/storefront-search/internal/ranking"
	"github.com/utafrali/storefront-search/internal/repository"
	esrepo "github.com/utafrali/storefront-search/internal/repository/elasticsearch"
	repomemory "github.com/utafrali/storefront-search/internal/repository/memory"
	"github.com/utafrali/storefront-search/internal/repository/postgres"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/pkg/breaker"
	"github.com/utafrali/storefront-search/pkg/database"
	"github.com/utafrali/storefront-search/pkg/health"
	pkgkafka "github.com/utafrali/storefront-search/pkg/kafka"
	"github.com/utafrali/storefront-search/pkg/middleware"
	"github.com/utafrali/storefront-search/pkg/tracing"
)

const serviceName = "search"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	closers        []func() error
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	repo, err := a.openCatalog(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	resultCache, err := a.openCache(ctx, healthHandler)
	if err != nil {
		a.close()
		return nil, err
	}

	searchService := service.NewSearchService(repo, resultCache, ranking.New(), logger, service.Options{
		SearchTTL:       cfg.SearchCacheTTL,
		SuggestTTL:      cfg.SuggestCacheTTL,
		RelevanceWindow: cfg.RelevanceWindow,
	})

	// Product events evict cached results when the catalog changes.
	if cfg.CacheInvalidationEvents {
		eventConsumer := event.NewConsumer(searchService, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  event.ConsumerGroup,
			Topics:   event.Topics(),
			MinBytes: 1,
			MaxBytes: 10e6, // 10 MB
		}, eventConsumer.Handle, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka consumer initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Any("topics", event.Topics()),
		)
	}

	router := handler.NewRouter(searchService, healthHandler, handler.RouterConfig{
		CORS:           middleware.DefaultCORSConfig(cfg.Environment, cfg.CORSAllowedOrigins),
		AdminToken:     cfg.AdminToken,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, cache invalidation endpoint is disabled")
	}

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// Handler returns the HTTP handler serving the search API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

func (a *App) openCatalog(ctx context.Context, hh *health.Handler) (repository.CandidateRepository, error) {
	cfg := a.cfg

	switch cfg.CatalogBackend {
	case config.CatalogElasticsearch:
		repo, err := esrepo.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch catalog: %w", err)
		}
		hh.RegisterCritical("elasticsearch", repo.Ping)
		a.logger.Info("elasticsearch catalog initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return repo, nil

	case config.CatalogMemory:
		repo := repomemory.New()
		if cfg.CatalogSeedFile != "" {
			n, err := repo.LoadFile(cfg.CatalogSeedFile)
			if err != nil {
				return nil, fmt.Errorf("seed memory catalog: %w", err)
			}
			a.logger.Info("memory catalog seeded",
				slog.String("file", cfg.CatalogSeedFile),
				slog.Int("products", n),
			)
		} else {
			a.logger.Warn("memory catalog started empty")
		}
		hh.RegisterCritical("catalog", repo.Ping)
		return repo, nil

	default:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPassword
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSLMode

		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)

		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("register pool metrics", slog.String("error", err.Error()))
		}
		if cfg.DBSlowQueryThreshold > 0 {
			database.SetSlowQueryLogging(cfg.DBSlowQueryThreshold, a.logger)
		}

		hh.RegisterCritical("postgres", pool.Ping)
		return postgres.NewCandidateRepository(pool), nil
	}
}

func (a *App) openCache(ctx context.Context, hh *health.Handler) (*cache.Cache, error) {
	cfg := a.cfg

	var opts cache.Options
	if cfg.CacheBreakerEnabled {
		bc := breaker.DefaultConfig("search-cache")
		opts.Breaker = &bc
	}

	if cfg.CacheBackend == config.CacheMemory {
		a.logger.Info("in-memory result cache initialized")
		return cache.New(cachememory.New(), a.logger, opts), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = cfg.RedisAddr
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB

	// The cache is optional. An unreachable Redis degrades to uncached
	// searches and the client reconnects on its own once Redis is back.
	client := database.OpenRedisClient(redisCfg)
	a.closers = append(a.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, redisCfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis unreachable, serving uncached results until it recovers",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	} else {
		a.logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	hh.RegisterNonCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return cache.New(cacheredis.New(client), a.logger, opts), nil
}

// Run starts the HTTP server and the Kafka consumer, blocking until the
// context is canceled.
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
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

	if err := a.close(); err != nil {
		errs = append(errs, err)
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// close releases backend connections in reverse order of opening.
func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close backend", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
