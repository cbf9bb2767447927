package news

import (
	"context"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
)

// Provider represents news source provider interface
type Provider interface {
	// GetName returns provider name
	GetName() string

	// FetchHeadlines fetches up to limit recent headline titles for symbol
	FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error)

	// IsEnabled returns whether provider is enabled
	IsEnabled() bool
}

// NewProviders builds configured providers, EventRegistry first
func NewProviders(cfg *config.NewsConfig) []Provider {
	return []Provider{
		NewEventRegistryProvider(&cfg.EventRegistry, cfg.Timeout),
		NewNewsAPIProvider(&cfg.NewsAPI, cfg.Timeout),
	}
}

// NewSourceFromConfig builds source with configured providers
func NewSourceFromConfig(cfg *config.NewsConfig) *Source {
	return NewSource(NewProviders(cfg), cfg.MaxHeadlines, cfg.SyntheticFallback)
}
