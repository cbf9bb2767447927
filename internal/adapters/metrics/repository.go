package metrics

import (
	"context"
	"fmt"

	"github.com/selivandex/sentiment-proxy/pkg/metrics"
)

// Column is one analytics table column
type Column struct {
	Name string
	Type string
}

// ResolutionColumns follow ResolutionMetric.Values order
var ResolutionColumns = []Column{
	{"timestamp", "DateTime64(3, 'UTC')"},
	{"symbol", "LowCardinality(String)"},
	{"cache_hit", "UInt8"},
	{"headline_count", "UInt16"},
	{"degraded_count", "UInt16"},
	{"synthetic", "UInt8"},
	{"overall_sentiment", "LowCardinality(String)"},
	{"persisted", "UInt8"},
	{"duration_ms", "UInt32"},
}

var tableColumns = map[string][]Column{
	metrics.ResolutionTable: ResolutionColumns,
}

// Repository stores analytics rows with named columns
type Repository interface {
	InsertBatch(ctx context.Context, tableName string, columns []string, values [][]interface{}) error
	Close() error
}

// Writer implements metrics.Writer for the known analytics tables.
// Rows for unknown tables or with the wrong arity are rejected before
// anything reaches the repository.
type Writer struct {
	repo Repository
}

var _ metrics.Writer = (*Writer)(nil)

func NewWriter(repo Repository) *Writer {
	return &Writer{repo: repo}
}

// Write converts resolution metrics to rows and inserts them
func (w *Writer) Write(ctx context.Context, tableName string, batch []metrics.Metric) error {
	if len(batch) == 0 {
		return nil
	}

	cols, ok := tableColumns[tableName]
	if !ok {
		return fmt.Errorf("unknown analytics table %q", tableName)
	}

	values := make([][]interface{}, len(batch))
	for i, m := range batch {
		row := m.Values()
		if len(row) != len(cols) {
			return fmt.Errorf("%s row %d has %d values, table has %d columns", tableName, i, len(row), len(cols))
		}
		values[i] = row
	}

	return w.repo.InsertBatch(ctx, tableName, columnNames(cols), values)
}

func (w *Writer) Close() error {
	if w.repo != nil {
		return w.repo.Close()
	}
	return nil
}

func columnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
