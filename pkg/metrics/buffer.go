package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// BufferedMetrics batches metrics per table and flushes them on size or interval
type BufferedMetrics struct {
	writer      Writer
	buffer      map[string][]Metric
	bufferMu    sync.Mutex
	batchSize   int
	flushTicker *time.Ticker
	flushCh     chan struct{}
	stopCh      chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// BufferConfig configures metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int           // flush when a table reaches this many rows
	FlushInterval time.Duration // periodic flush
}

// NewBufferedMetrics creates buffer and starts its flush loop
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:      cfg.Writer,
		buffer:      make(map[string][]Metric),
		batchSize:   cfg.BatchSize,
		flushTicker: time.NewTicker(cfg.FlushInterval),
		flushCh:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.flushLoop()

	logger.Info("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add appends metric; a full batch wakes the flush loop
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	tableName := metric.TableName()
	if tableName == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.bufferMu.Lock()
	bm.buffer[tableName] = append(bm.buffer[tableName], metric)
	full := len(bm.buffer[tableName]) >= bm.batchSize
	bm.bufferMu.Unlock()

	if full {
		select {
		case bm.flushCh <- struct{}{}:
		default:
		}
	}

	return nil
}

// RecordResolution buffers successful resolutions for the analytics sink
func (bm *BufferedMetrics) RecordResolution(m *ResolutionMetric) {
	if !m.Succeeded() {
		return
	}
	if err := bm.Add(m); err != nil {
		logger.Warn("failed to buffer resolution metric", zap.Error(err))
	}
}

// Flush writes every buffered table
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.bufferMu.Lock()
	toFlush := bm.buffer
	bm.buffer = make(map[string][]Metric, len(toFlush))
	bm.bufferMu.Unlock()

	failed := 0
	for tableName, batch := range toFlush {
		if len(batch) == 0 {
			continue
		}

		if err := bm.writer.Write(ctx, tableName, batch); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("table", tableName),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			failed++
			continue
		}

		logger.Debug("metrics flushed",
			zap.String("table", tableName),
			zap.Int("count", len(batch)),
		)
	}

	if failed > 0 {
		return fmt.Errorf("flush failed for %d tables", failed)
	}

	return nil
}

// Size returns current buffer size across all tables
func (bm *BufferedMetrics) Size() int {
	bm.bufferMu.Lock()
	defer bm.bufferMu.Unlock()

	total := 0
	for _, batch := range bm.buffer {
		total += len(batch)
	}
	return total
}

// Close stops the flush loop, flushes what is left and closes the writer
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	var err error

	bm.closeOnce.Do(func() {
		close(bm.stopCh)
		bm.flushTicker.Stop()
		bm.wg.Wait()

		if ferr := bm.Flush(ctx); ferr != nil {
			err = ferr
		}
		if cerr := bm.writer.Close(); cerr != nil && err == nil {
			err = cerr
		}

		logger.Info("metrics buffer closed")
	})

	return err
}

func (bm *BufferedMetrics) flushLoop() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.flushTicker.C:
		case <-bm.flushCh:
		case <-bm.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := bm.Flush(ctx); err != nil {
			logger.Warn("periodic flush failed", zap.Error(err))
		}
		cancel()
	}
}
