package sentiment

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

// CircuitBreaker stops calling a provider after repeated consecutive failures
// until a cooldown passes. After the cooldown a single probe call is let
// through and others are refused until it reports back. A failed probe
// reopens the breaker and a successful one closes it.
type CircuitBreaker struct {
	mu                  sync.Mutex
	name                string
	isOpen              bool
	probing             bool
	consecutiveFailures int
	maxFailures         int
	cooldownDuration    time.Duration
	openedAt            time.Time
	now                 func() time.Time
}

// NewCircuitBreaker creates breaker; maxFailures <= 0 disables it
func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		maxFailures:      maxFailures,
		cooldownDuration: cooldown,
		now:              time.Now,
	}
}

// Allow reports whether a call may be attempted
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.probing || cb.now().Sub(cb.openedAt) < cb.cooldownDuration {
		return false
	}

	cb.probing = true
	return true
}

// ReleaseProbe gives up an in-flight probe that ended without a verdict,
// so the next caller may probe instead
func (cb *CircuitBreaker) ReleaseProbe() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

// RecordSuccess closes the breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.isOpen {
		logger.Info("circuit breaker closed", zap.String("provider", cb.name))
	}
	cb.isOpen = false
	cb.probing = false
	cb.consecutiveFailures = 0
}

// RecordFailure counts a failure and opens the breaker at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.maxFailures <= 0 {
		return
	}

	cb.consecutiveFailures++

	if cb.isOpen {
		// half-open probe failed
		cb.probing = false
		cb.openedAt = cb.now()
		return
	}

	if cb.consecutiveFailures >= cb.maxFailures {
		cb.isOpen = true
		cb.openedAt = cb.now()

		logger.Warn("circuit breaker opened",
			zap.String("provider", cb.name),
			zap.Int("consecutive_failures", cb.consecutiveFailures),
			zap.Duration("cooldown", cb.cooldownDuration),
		)
	}
}

// Status returns current breaker state
func (cb *CircuitBreaker) Status() CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		IsOpen:              cb.isOpen,
		ConsecutiveFailures: cb.consecutiveFailures,
		OpenedAt:            cb.openedAt,
	}

	if cb.isOpen {
		if remaining := cb.cooldownDuration - cb.now().Sub(cb.openedAt); remaining > 0 {
			status.CooldownRemaining = remaining
		}
	}

	return status
}

// CircuitBreakerStatus represents breaker state
type CircuitBreakerStatus struct {
	IsOpen              bool          `json:"is_open"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	OpenedAt            time.Time     `json:"opened_at,omitempty"`
	CooldownRemaining   time.Duration `json:"cooldown_remaining,omitempty"`
}
