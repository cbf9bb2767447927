package metrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/metrics"
)

var resolutionsDDL = createTableDDL(metrics.ResolutionTable, ResolutionColumns, `ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (symbol, timestamp)
TTL toDateTime(timestamp) + INTERVAL 90 DAY`)

func createTableDDL(table string, cols []Column, engine string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = "\t" + c.Name + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n) %s", table, strings.Join(defs, ",\n"), engine)
}

// ClickHouseRepository implements Repository for ClickHouse
type ClickHouseRepository struct {
	db *sqlx.DB
}

// NewClickHouseRepository creates new ClickHouse repository
func NewClickHouseRepository(db *sqlx.DB) *ClickHouseRepository {
	return &ClickHouseRepository{db: db}
}

// EnsureSchema creates the resolutions table when missing
func (r *ClickHouseRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, resolutionsDDL); err != nil {
		return fmt.Errorf("failed to create %s: %w", metrics.ResolutionTable, err)
	}
	return nil
}

// InsertBatch inserts batch of rows into ClickHouse table
func (r *ClickHouseRepository) InsertBatch(ctx context.Context, tableName string, columns []string, values [][]interface{}) error {
	query, args, err := buildInsert(tableName, columns, values)
	if err != nil {
		return err
	}
	if query == "" {
		return nil
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ClickHouse insert failed: %w", err)
	}

	logger.Debug("ClickHouse batch insert successful",
		zap.String("table", tableName),
		zap.Int("rows", len(values)),
	)

	return nil
}

// Close is a no-op, the connection is owned by the caller
func (r *ClickHouseRepository) Close() error {
	return nil
}

func buildInsert(tableName string, columns []string, values [][]interface{}) (string, []interface{}, error) {
	if len(values) == 0 {
		return "", nil, nil
	}

	columnCount := len(columns)
	if columnCount == 0 {
		return "", nil, fmt.Errorf("no columns for %s", tableName)
	}

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", columnCount), ", ") + ")"
	placeholders := make([]string, len(values))
	args := make([]interface{}, 0, len(values)*columnCount)

	for i, v := range values {
		if len(v) != columnCount {
			return "", nil, fmt.Errorf("row %d has wrong column count: expected %d, got %d", i, columnCount, len(v))
		}
		placeholders[i] = row
		args = append(args, v...)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", ")), args, nil
}
