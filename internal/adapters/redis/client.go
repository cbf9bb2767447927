package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/amyangfei/redlock-go/v3/redlock"
	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// Client bundles a RedLock manager for replica coordination and a plain
// client for health checks
type Client struct {
	lockManager *redlock.RedLock
	rdb         *redis.Client
}

// New connects to Redis
func New(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lockManager, err := redlock.NewRedLock(ctx, []string{"tcp://" + addr})
	if err != nil {
		return nil, fmt.Errorf("failed to create redlock manager: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis client initialized",
		zap.String("address", addr),
		zap.Int("db", cfg.DB),
	)

	return &Client{
		lockManager: lockManager,
		rdb:         rdb,
	}, nil
}

// LockFactory returns factory of redlock-backed locks
func (c *Client) LockFactory() LockFactory {
	return NewRedisLockFactory(c.lockManager)
}

// Close closes redis connections
func (c *Client) Close() error {
	if c.rdb != nil {
		logger.Info("closing redis client")
		if err := c.rdb.Close(); err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}

// Health pings redis
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	return nil
}
