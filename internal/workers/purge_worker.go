package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/redis"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// PurgeLockName is shared by all replicas
const PurgeLockName = "sentiment:purge"

// PurgeWorker deletes sentiment records older than the retention period
type PurgeWorker struct {
	store     records.Store
	lock      redis.Lock
	retention time.Duration
	clock     func() time.Time
	onPurge   func(n int64)
}

// PurgeOption configures PurgeWorker
type PurgeOption func(*PurgeWorker)

// WithPurgeClock overrides time source
func WithPurgeClock(clock func() time.Time) PurgeOption {
	return func(w *PurgeWorker) {
		w.clock = clock
	}
}

// WithPurgeCallback is called with the number of removed records after each purge
func WithPurgeCallback(fn func(n int64)) PurgeOption {
	return func(w *PurgeWorker) {
		w.onPurge = fn
	}
}

// NewPurgeWorker creates purge worker
func NewPurgeWorker(store records.Store, lock redis.Lock, retention time.Duration, opts ...PurgeOption) *PurgeWorker {
	w := &PurgeWorker{
		store:     store,
		lock:      lock,
		retention: retention,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *PurgeWorker) Name() string {
	return "purge_worker"
}

// Run purges once if this replica holds the lock
func (w *PurgeWorker) Run(ctx context.Context) error {
	acquired, err := w.lock.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire %s: %w", w.lock.Name(), err)
	}
	if !acquired {
		logger.Debug("purge skipped, another replica holds the lock")
		return nil
	}
	defer func() {
		if err := w.lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release purge lock", zap.Error(err))
		}
	}()

	_, err = w.Purge(ctx)
	return err
}

// Purge removes records older than retention without taking the lock
func (w *PurgeWorker) Purge(ctx context.Context) (int64, error) {
	cutoff := w.clock().UTC().Add(-w.retention)

	n, err := w.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge records: %w", err)
	}

	if w.onPurge != nil {
		w.onPurge(n)
	}

	logger.Info("purged old sentiment records",
		zap.Int64("deleted", n),
		zap.Time("cutoff", cutoff),
	)

	return n, nil
}
