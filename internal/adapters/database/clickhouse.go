package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// NewClickHouse connects to the analytics database
func NewClickHouse(ctx context.Context, cfg *config.ClickHouseConfig) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "clickhouse", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	logger.Info("ClickHouse connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)

	return &DB{conn: conn}, nil
}
