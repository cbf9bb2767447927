package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/ai"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// SourceKeyword marks labels produced by the local heuristic
const SourceKeyword = "keyword"

// Result is a single headline classification
type Result struct {
	Label    models.Sentiment
	Source   string
	Degraded bool // remote providers were configured but none produced a label
}

// Classifier labels headlines with remote providers, falling back to the
// keyword heuristic. Safe for concurrent use.
type Classifier struct {
	providers []ai.SentimentProvider
	breakers  []*CircuitBreaker
	analyzer  *Analyzer
	timeout   time.Duration

	breakerFailures int
	breakerCooldown time.Duration
}

// ClassifierOption configures Classifier
type ClassifierOption func(*Classifier)

// WithCircuitBreaker skips a provider for cooldown after maxFailures consecutive errors
func WithCircuitBreaker(maxFailures int, cooldown time.Duration) ClassifierOption {
	return func(c *Classifier) {
		c.breakerFailures = maxFailures
		c.breakerCooldown = cooldown
	}
}

// NewClassifier creates classifier. Providers are tried in the given order;
// timeout bounds each remote call (zero disables the per-call bound).
func NewClassifier(providers []ai.SentimentProvider, timeout time.Duration, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		analyzer: defaultAnalyzer,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, p := range providers {
		if p != nil && p.IsEnabled() {
			c.providers = append(c.providers, p)
			c.breakers = append(c.breakers, NewCircuitBreaker(p.GetName(), c.breakerFailures, c.breakerCooldown))
		}
	}

	return c
}

// Classify never fails on provider errors. The error is non-nil only when ctx
// is done before a label could be obtained from a provider.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Label: models.SentimentNeutral, Source: SourceKeyword}, nil
	}

	for i, p := range c.providers {
		breaker := c.breakers[i]
		if !breaker.Allow() {
			continue
		}

		label, err := c.classifyWith(ctx, p, text)
		if err == nil {
			breaker.RecordSuccess()
			return Result{Label: label, Source: p.GetName()}, nil
		}

		if ctx.Err() != nil {
			breaker.ReleaseProbe()
			return Result{Label: models.SentimentNeutral, Source: SourceKeyword, Degraded: true}, ctx.Err()
		}

		breaker.RecordFailure()
		logger.Warn("sentiment provider failed, trying next",
			zap.String("provider", p.GetName()),
			zap.Error(err),
		)
	}

	result := Result{
		Label:    c.analyzer.Classify(text),
		Source:   SourceKeyword,
		Degraded: len(c.providers) > 0,
	}

	if result.Degraded {
		logger.Debug("classification degraded to keyword heuristic",
			zap.String("headline", text),
			zap.String("sentiment", result.Label.String()),
		)
	}

	return result, nil
}

func (c *Classifier) classifyWith(ctx context.Context, p ai.SentimentProvider, text string) (models.Sentiment, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	label, err := p.ClassifyHeadline(callCtx, text)
	if err != nil {
		return "", err
	}

	if !label.IsValid() {
		return "", fmt.Errorf("invalid sentiment label %q", label)
	}

	return label, nil
}

// BreakerStatus returns breaker state per provider name
func (c *Classifier) BreakerStatus() map[string]CircuitBreakerStatus {
	out := make(map[string]CircuitBreakerStatus, len(c.providers))
	for i, p := range c.providers {
		out[p.GetName()] = c.breakers[i].Status()
	}
	return out
}

// Providers returns names of the remote providers in try order
func (c *Classifier) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.GetName()
	}
	return names
}
