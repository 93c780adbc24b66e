package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/rewardgraph/internal/adapter/csvreader"
	httpAdapter "github.com/iho/rewardgraph/internal/adapter/http"
	"github.com/iho/rewardgraph/internal/adapter/http/handler"
	"github.com/iho/rewardgraph/internal/adapter/http/middleware"
	"github.com/iho/rewardgraph/internal/adapter/repository/graphdb"
	postgresRepo "github.com/iho/rewardgraph/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/rewardgraph/internal/adapter/repository/redis"
	"github.com/iho/rewardgraph/internal/infrastructure/config"
	"github.com/iho/rewardgraph/internal/infrastructure/graph"
	"github.com/iho/rewardgraph/internal/infrastructure/logger"
	"github.com/iho/rewardgraph/internal/infrastructure/metrics"
	"github.com/iho/rewardgraph/internal/infrastructure/postgres"
	"github.com/iho/rewardgraph/internal/infrastructure/redis"
	"github.com/iho/rewardgraph/internal/usecase"
)

const (
	limiterCleanupInterval = time.Minute
	limiterIdleTimeout     = 3 * time.Minute
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	zerolog.TimeFieldFormat = time.RFC3339
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.RunMigrations(cfg.DatabaseURL, appLogger); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, redis.ClientConfig{
		URL:            cfg.RedisURL,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	// Connect to the graph database when configured
	graphWriter, closeGraph, err := newGraphWriter(ctx, cfg, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to graph database")
	}
	defer closeGraph()

	// Initialize repositories
	appMetrics := metrics.New()
	datasetRepo := postgresRepo.NewDatasetRepository(pool, postgresRepo.NewRetrier(appLogger))
	recordCache := redisRepo.NewRecordCache(redisClient)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	datasetUC := usecase.NewDatasetUseCase(usecase.DatasetUseCaseConfig{
		DatasetRepo: datasetRepo,
		Parser:      csvreader.NewParser(),
		Cache:       recordCache,
		IDGen:       idGen,
		Metrics:     appMetrics,
		Logger:      appLogger,
		CacheTTL:    cfg.DatasetCacheTTL,
	})
	graphUC := usecase.NewGraphUseCase(datasetUC, usecase.NewPipeline(appMetrics))
	syncUC := usecase.NewSyncUseCase(datasetUC, graphWriter, appMetrics, appLogger, cfg.SyncConcurrency)

	// Initialize handlers
	checks := []handler.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	if syncUC.Enabled() {
		checks = append(checks, handler.HealthCheck{Name: "graph", Check: syncUC.VerifyConnectivity})
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		DatasetHandler:   handler.NewDatasetHandler(datasetUC, cfg.MaxUploadBytes),
		GraphHandler:     handler.NewGraphHandler(graphUC),
		SyncHandler:      handler.NewSyncHandler(syncUC),
		HealthHandler:    handler.NewHealthHandler(checks...),
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		Logger:           appLogger,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	stopCleanup := make(chan struct{})
	go cleanupLimiters(rateLimiter, stopCleanup)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Bool("graph_sync", syncUC.Enabled()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	close(stopCleanup)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newGraphWriter connects to the graph database. Without GRAPH_URI it
// returns a nil writer, which disables sync.
func newGraphWriter(ctx context.Context, cfg *config.Config, lg zerolog.Logger) (usecase.GraphWriter, func(), error) {
	if !cfg.GraphEnabled() {
		lg.Info().Msg("GRAPH_URI not set, graph sync disabled")
		return nil, func() {}, nil
	}

	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.GraphURI,
		Database:       cfg.GraphDatabase,
		Username:       cfg.GraphUsername,
		Password:       cfg.GraphPassword,
		MaxConnections: cfg.GraphMaxConnections,
	})
	if err != nil {
		return nil, nil, err
	}
	lg.Info().Str("uri", cfg.GraphURI).Msg("connected to graph database")

	closeFn := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			lg.Warn().Err(err).Msg("failed to close graph database driver")
		}
	}

	return graphdb.NewTransactionWriter(client, lg), closeFn, nil
}

func cleanupLimiters(rl *middleware.RateLimiter, stop <-chan struct{}) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.CleanupLimiters(limiterIdleTimeout)
		case <-stop:
			return
		}
	}
}
