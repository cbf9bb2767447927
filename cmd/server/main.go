package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/ai"
	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/internal/adapters/database"
	metricsAdapter "github.com/selivandex/sentiment-proxy/internal/adapters/metrics"
	"github.com/selivandex/sentiment-proxy/internal/adapters/news"
	redisAdapter "github.com/selivandex/sentiment-proxy/internal/adapters/redis"
	"github.com/selivandex/sentiment-proxy/internal/api"
	"github.com/selivandex/sentiment-proxy/internal/coordinator"
	"github.com/selivandex/sentiment-proxy/internal/health"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/internal/sentiment"
	"github.com/selivandex/sentiment-proxy/internal/workers"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/metrics"
	"github.com/selivandex/sentiment-proxy/pkg/worker"
)

const purgeLockTTL = 5 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("news sentiment service starting",
		zap.String("store", cfg.Store.Driver),
		zap.String("persist_mode", cfg.Coordinator.PersistMode),
	)

	if cfg.Coordinator.IsBestEffort() {
		logger.Warn("best-effort persistence enabled, store failures will not fail requests")
	}

	probes := health.NewHandler()

	store, db, err := initStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		probes.AddCheck("database", db)
	}

	lockFactory, redisClient := initLocks(ctx, cfg)
	if redisClient != nil {
		defer redisClient.Close()
		probes.AddCheck("redis", redisClient)
	}

	providers, err := ai.NewProviders(&cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to init AI providers: %w", err)
	}
	classifier := sentiment.NewClassifier(providers, cfg.AI.ClassifyTimeout,
		sentiment.WithCircuitBreaker(cfg.AI.BreakerFailures, cfg.AI.BreakerCooldown),
	)
	logger.Info("sentiment classifier ready", zap.Strings("providers", classifier.Providers()))

	collector := metrics.NewCollector()
	opts := []coordinator.Option{
		coordinator.WithPersistMode(cfg.Coordinator.PersistMode),
		coordinator.WithMaxConcurrency(cfg.Coordinator.MaxConcurrency),
		coordinator.WithRecorder(collector),
	}

	if analytics, closeAnalytics := initAnalytics(ctx, cfg); analytics != nil {
		defer closeAnalytics()
		opts = append(opts, coordinator.WithRecorder(analytics))
	}

	coord := coordinator.New(store, news.NewSourceFromConfig(&cfg.News), classifier, opts...)

	workerGroup := worker.NewGroup(ctx)
	if cfg.Purge.Enabled {
		purger := workers.NewPurgeWorker(store,
			lockFactory.CreateLock(workers.PurgeLockName, purgeLockTTL),
			cfg.Purge.Retention,
			workers.WithPurgeCallback(func(n int64) { collector.PurgedRecords.Add(float64(n)) }),
		)
		workerGroup.Add(purger, cfg.Purge.Interval)
	}
	workerGroup.Start()

	server := api.NewServer(&cfg.Server, api.Deps{
		Handler:  api.NewHandler(coord, store),
		Health:   probes,
		Metrics:  collector.Handler(),
		Observer: collector,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	probes.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err = <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	probes.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		logger.Error("http server shutdown failed", zap.Error(stopErr))
	}
	workerGroup.Stop(cfg.Server.ShutdownTimeout)

	logger.Info("news sentiment service stopped")
	return err
}

func initConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// initStore opens the configured record store; db is nil for the memory driver
func initStore(ctx context.Context, cfg *config.Config) (records.Store, *database.DB, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory record store, records are lost on restart")
		return records.NewMemoryStore(), nil, nil
	}

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return records.NewRepository(db.DB()), db, nil
}

// initLocks falls back to process-local locks when Redis is disabled or unreachable
func initLocks(ctx context.Context, cfg *config.Config) (redisAdapter.LockFactory, *redisAdapter.Client) {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, purge lock is process-local")
		return redisAdapter.NewLocalLockFactory(), nil
	}

	client, err := redisAdapter.New(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("redis not available, purge lock is process-local", zap.Error(err))
		return redisAdapter.NewLocalLockFactory(), nil
	}

	return client.LockFactory(), client
}

// initAnalytics builds the ClickHouse resolution sink; nil when disabled or unreachable
func initAnalytics(ctx context.Context, cfg *config.Config) (*metrics.BufferedMetrics, func()) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	ch, err := database.NewClickHouse(ctx, &cfg.ClickHouse)
	if err != nil {
		logger.Warn("ClickHouse not available, resolution analytics disabled", zap.Error(err))
		return nil, nil
	}

	repo := metricsAdapter.NewClickHouseRepository(ch.DB())
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Warn("ClickHouse schema setup failed, resolution analytics disabled", zap.Error(err))
		ch.Close()
		return nil, nil
	}

	buffer := metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer:        metricsAdapter.NewWriter(repo),
		BatchSize:     cfg.ClickHouse.BatchSize,
		FlushInterval: cfg.ClickHouse.FlushInterval,
	})

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := buffer.Close(ctx); err != nil {
			logger.Error("failed to flush resolution analytics", zap.Error(err))
		}
		ch.Close()
	}

	return buffer, closeFn
}
