package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// Worker is a unit of background work run on a ticker
type Worker interface {
	// Name returns worker name for logging
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// PeriodicWorker runs a Worker immediately and then on every interval tick
type PeriodicWorker struct {
	worker   Worker
	interval time.Duration
	wg       sync.WaitGroup
}

// NewPeriodicWorker creates new periodic worker
func NewPeriodicWorker(worker Worker, interval time.Duration) *PeriodicWorker {
	return &PeriodicWorker{
		worker:   worker,
		interval: interval,
	}
}

// Start runs the worker in background until ctx is cancelled
func (pw *PeriodicWorker) Start(ctx context.Context) {
	pw.wg.Add(1)
	go pw.run(ctx)
}

// Wait blocks until the worker loop exits or timeout passes.
// Returns false on timeout.
func (pw *PeriodicWorker) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		pw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("worker stopped", zap.String("worker", pw.worker.Name()))
		return true
	case <-time.After(timeout):
		logger.Warn("worker stop timeout", zap.String("worker", pw.worker.Name()))
		return false
	}
}

func (pw *PeriodicWorker) run(ctx context.Context) {
	defer pw.wg.Done()

	name := pw.worker.Name()
	logger.Info("worker started",
		zap.String("worker", name),
		zap.Duration("interval", pw.interval),
	)

	pw.runOnce(ctx)

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping", zap.String("worker", name))
			return
		case <-ticker.C:
			pw.runOnce(ctx)
		}
	}
}

// runOnce logs failures and keeps the loop alive
func (pw *PeriodicWorker) runOnce(ctx context.Context) {
	if err := pw.worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker execution failed",
			zap.String("worker", pw.worker.Name()),
			zap.Error(err),
		)
	}
}

// Group starts and stops several periodic workers together
type Group struct {
	mu      sync.Mutex
	workers []*PeriodicWorker
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewGroup creates worker group bound to ctx
func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers worker; workers added after Start are started immediately
func (g *Group) Add(worker Worker, interval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pw := NewPeriodicWorker(worker, interval)
	g.workers = append(g.workers, pw)
	if g.started {
		pw.Start(g.ctx)
	}
}

// Start starts all workers
func (g *Group) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return
	}
	g.started = true

	for _, pw := range g.workers {
		pw.Start(g.ctx)
	}

	logger.Info("worker group started", zap.Int("workers", len(g.workers)))
}

// Stop cancels all workers and waits up to timeout for each
func (g *Group) Stop(timeout time.Duration) {
	g.cancel()

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, pw := range g.workers {
		pw.Wait(timeout)
	}

	logger.Info("worker group stopped", zap.Int("workers", len(g.workers)))
}

// Len returns number of registered workers
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.workers)
}
