package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront-search/internal/config"
	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine"
	"github.com/utafrali/storefront-search/internal/engine/breaker"
	esengine "github.com/utafrali/storefront-search/internal/engine/elasticsearch"
	"github.com/utafrali/storefront-search/internal/engine/memory"
	handler "github.com/utafrali/storefront-search/internal/handler/http"
	"github.com/utafrali/storefront-search/internal/hitgroup"
	"github.com/utafrali/storefront-search/internal/i18n"
	"github.com/utafrali/storefront-search/internal/route"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/internal/visit"
	visitredis "github.com/utafrali/storefront-search/internal/visit/redis"
	"github.com/utafrali/storefront-search/pkg/database"
	"github.com/utafrali/storefront-search/pkg/health"
	"github.com/utafrali/storefront-search/pkg/middleware"
	"github.com/utafrali/storefront-search/pkg/tracing"
)

const serviceName = "storefront-search"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Flush and stop the tracer when a later step fails. Redis is opened
	// last, so nothing after it can fail.
	fail := func(err error) (*App, error) {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		if shutdownErr := tracerShutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("tracer shutdown error", slog.String("error", shutdownErr.Error()))
		}
		return nil, err
	}

	translator, err := i18n.New(cfg.DefaultLanguage)
	if err != nil {
		return fail(fmt.Errorf("init translator: %w", err))
	}

	healthHandler := health.NewHandler()

	searcher, err := newSearcher(ctx, cfg, healthHandler, logger)
	if err != nil {
		return fail(err)
	}

	visits, rdb, err := newVisitRecorder(ctx, cfg, healthHandler, logger)
	if err != nil {
		return fail(err)
	}

	// Build the dependency graph.
	groups := hitgroup.NewAssembler(route.NewBuilder(cfg.SearchRouteBase), translator)
	searchService := service.NewSearchService(searcher, groups, translator, visits, cfg.SearchSettings(), logger)
	searchHandler := handler.NewSearchHandler(searchService, translator, logger)

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(searchHandler, healthHandler, handler.RouterConfig{
		ServiceName:       serviceName,
		DefaultStoreID:    cfg.DefaultStoreID,
		RequestTimeout:    cfg.RequestTimeout,
		BoxCacheMaxAge:    cfg.BoxCacheMaxAge,
		CORS:              corsCfg,
		PprofEnabled:      cfg.PprofEnabled,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newSearcher builds the configured search backend, wrapped in a circuit
// breaker when enabled, and registers its health check.
func newSearcher(ctx context.Context, cfg *config.Config, healthHandler *health.Handler, logger *slog.Logger) (engine.Searcher, error) {
	var searcher engine.Searcher
	switch cfg.SearchEngine {
	case "elasticsearch":
		esEng, err := esengine.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		healthHandler.RegisterCritical("elasticsearch", esEng.Ping)
		searcher = esEng
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
	default:
		memEng := memory.New()
		if cfg.MemoryFixtureFile != "" {
			n, err := loadFixture(ctx, memEng, cfg.MemoryFixtureFile)
			if err != nil {
				return nil, err
			}
			logger.Info("memory engine seeded",
				slog.String("file", cfg.MemoryFixtureFile),
				slog.Int("products", n),
			)
		}
		searcher = memEng
		logger.Info("in-memory search engine initialized")
	}

	if !cfg.BreakerEnabled {
		return searcher, nil
	}

	breakerCfg := breaker.DefaultConfig(cfg.SearchEngine)
	breakerCfg.Timeout = cfg.BreakerTimeout
	breakerCfg.FailureRatio = cfg.BreakerFailureRatio
	breakerCfg.MinRequests = cfg.BreakerMinRequests
	return breaker.New(searcher, breakerCfg, logger), nil
}

// newVisitRecorder builds the last visited page store. The Redis store is a
// non-critical dependency: searches keep working when it is down.
func newVisitRecorder(ctx context.Context, cfg *config.Config, healthHandler *health.Handler, logger *slog.Logger) (visit.Recorder, *redis.Client, error) {
	if cfg.VisitStore != "redis" {
		logger.Info("in-memory visit store initialized")
		return visit.NewMemoryRecorder(), nil, nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = cfg.RedisHost
	redisCfg.Port = cfg.RedisPort
	redisCfg.Password = cfg.RedisPassword
	redisCfg.DB = cfg.RedisDB

	rdb, err := database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", redisCfg.Addr()),
		slog.Int("db", redisCfg.DB),
	)
	healthHandler.RegisterNonCritical("visit_store", database.RedisChecker(rdb))

	return visitredis.NewRecorder(rdb, cfg.VisitTTL), rdb, nil
}

// loadFixture seeds idx with the JSON array of products stored at path.
func loadFixture(ctx context.Context, idx engine.Indexer, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read fixture: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if err := idx.BulkIndex(ctx, products); err != nil {
		return 0, fmt.Errorf("index fixture: %w", err)
	}
	return len(products), nil
}

// Handler returns the HTTP handler serving the search API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

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
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: the HTTP server
// drains first, then pending spans are flushed and Redis is closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
