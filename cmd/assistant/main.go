package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minerva/internal/adapters/ai"
	"minerva/internal/adapters/clickhouse"
	"minerva/internal/adapters/config"
	"minerva/internal/adapters/errors/noop"
	"minerva/internal/adapters/errors/sentry"
	"minerva/internal/adapters/kafka"
	"minerva/internal/adapters/postgres"
	"minerva/internal/adapters/redis"
	"minerva/internal/api"
	"minerva/internal/api/health"
	"minerva/internal/insights"
	"minerva/internal/metrics"
	chrepo "minerva/internal/repository/clickhouse"
	pgrepo "minerva/internal/repository/postgres"
	"minerva/internal/tools"
	"minerva/internal/tools/catalog"
	"minerva/internal/tracing"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
	"minerva/pkg/retry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Register()

	db := initDatabases(cfg, log)
	defer db.Close(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Invocation metrics: batched writes into ClickHouse
	invocationRepo := chrepo.NewInvocationRepository(db.ClickHouse.Conn())
	recorder := metrics.NewBatchedRecorder(invocationRepo, cfg.Metrics.BatchSize, cfg.Metrics.MaxAge)
	recorder.Start(ctx)

	tracer := initTracer(cfg, db, log)
	tracer.Start(ctx)

	executor := initExecutor(cfg, db, recorder, tracer, log)

	insightsSvc := insights.NewService(invocationRepo, db.Redis, cfg.Metrics.CacheTTL)

	healthHandler := health.New(log, db.Postgres.DB(), db.ClickHouse.Conn(), db.Redis.Client(), cfg.App.Name, cfg.App.Version)
	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.HTTP.Port,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, healthHandler, api.NewInsightsHandler(insightsSvc), api.NewToolsHandler(executor), log)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Failed to stop HTTP server: %v", err)
	}
	if err := recorder.Stop(shutdownCtx); err != nil {
		log.Warnf("Failed to drain invocation recorder: %v", err)
	}
	if err := tracer.Stop(shutdownCtx); err != nil {
		log.Warnf("Failed to drain tracer: %v", err)
	}
	if err := errorTracker.Flush(shutdownCtx); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}

	log.Info("Shutdown complete")
}

// Database bundles all storage connections
type Database struct {
	Postgres   *postgres.Client
	ClickHouse *clickhouse.Client
	Redis      *redis.Client
	Kafka      *kafka.Producer
}

// Close closes all connections
func (d *Database) Close(log *logger.Logger) {
	if d.Kafka != nil {
		if err := d.Kafka.Close(); err != nil {
			log.Warnf("Failed to close Kafka producer: %v", err)
		}
	}
	if err := d.Redis.Close(); err != nil {
		log.Warnf("Failed to close Redis: %v", err)
	}
	if err := d.ClickHouse.Close(); err != nil {
		log.Warnf("Failed to close ClickHouse: %v", err)
	}
	if err := d.Postgres.Close(); err != nil {
		log.Warnf("Failed to close PostgreSQL: %v", err)
	}
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initDatabases initializes storage connections (PostgreSQL, ClickHouse, Redis, Kafka)
func initDatabases(cfg *config.Config, log *logger.Logger) *Database {
	log.Info("Initializing databases...")

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	}

	log.Info("Databases initialized")
	return &Database{
		Postgres:   pgClient,
		ClickHouse: chClient,
		Redis:      redisClient,
		Kafka:      producer,
	}
}

// initTracer builds the trace batcher. Traces go to Kafka when brokers are
// configured, straight to ClickHouse otherwise; a disabled tracer keeps a
// nil sink and drops everything.
func initTracer(cfg *config.Config, db *Database, log *logger.Logger) *tracing.Tracer {
	var sink tracing.Sink
	switch {
	case !cfg.Tracing.Enabled:
		log.Info("Tracing disabled")
	case db.Kafka != nil:
		sink = tracing.NewKafkaSink(db.Kafka, cfg.Kafka.TraceTopic)
		log.Infof("Tracing to Kafka topic %s", cfg.Kafka.TraceTopic)
	default:
		sink = tracing.NewClickHouseSink(db.ClickHouse.Conn())
		log.Info("Tracing to ClickHouse")
	}

	return tracing.New(tracing.Config{
		Sink: sink,
		Filters: tracing.Filters{
			SamplingRate:  cfg.Tracing.SamplingRate,
			MinDuration:   cfg.Tracing.MinDuration,
			MaxDepth:      cfg.Tracing.MaxDepth,
			ExcludeFields: cfg.Tracing.ExcludeFields,
		},
		QueueSizeLimit: cfg.Tracing.QueueSizeLimit,
		FlushInterval:  cfg.Tracing.FlushInterval,
	})
}

// initExecutor wires repositories and tools into the invocation pipeline
func initExecutor(cfg *config.Config, db *Database, recorder *metrics.BatchedRecorder, tracer *tracing.Tracer, log *logger.Logger) *tools.Executor {
	log.Info("Initializing tools...")

	deps := tools.Deps{
		TicketRepo:  pgrepo.NewTicketRepository(db.Postgres.DB()),
		AgentRepo:   pgrepo.NewAgentRepository(db.Postgres.DB()),
		ArticleRepo: pgrepo.NewArticleRepository(db.Postgres.DB()),
		Chat: ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:            cfg.AI.OpenAIKey,
			Model:             cfg.AI.Model,
			Timeout:           cfg.AI.RequestTimeout,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		}),
		Retry: retry.New(retry.Config{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		}),
		Log: log,
	}

	registry, err := catalog.Build(deps)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}

	log.Infof("Tools registered: %v", registry.Names())
	return tools.NewExecutor(registry, recorder, tracer)
}

// waitForShutdown blocks until an interrupt arrives or the process context
// is cancelled, for example by a failed HTTP server
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutting down...")
	case <-ctx.Done():
		log.Info("Shutting down after fatal error...")
	}
	cancel()
}
