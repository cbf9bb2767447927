package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/internal/adapters/database"
	redisAdapter "github.com/selivandex/sentiment-proxy/internal/adapters/redis"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/internal/workers"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

func main() {
	retention := flag.Duration("retention", 0, "delete records older than this (default PURGE_RETENTION)")
	noLock := flag.Bool("no-lock", false, "purge without taking the distributed lock")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *retention, *noLock); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, retention time.Duration, noLock bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("purge requires the postgres store, got %q", cfg.Store.Driver)
	}
	if retention <= 0 {
		retention = cfg.Purge.Retention
	}
	if retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var lockFactory redisAdapter.LockFactory = redisAdapter.NewLocalLockFactory()
	if cfg.Redis.Enabled && !noLock {
		client, err := redisAdapter.New(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		lockFactory = client.LockFactory()
	}

	purger := workers.NewPurgeWorker(
		records.NewRepository(db.DB()),
		lockFactory.CreateLock(workers.PurgeLockName, 5*time.Minute),
		retention,
	)

	logger.Info("running one-shot purge", zap.Duration("retention", retention))

	return purger.Run(ctx)
}
