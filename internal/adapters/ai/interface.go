package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// SentimentProvider classifies a single headline with a remote model
type SentimentProvider interface {
	// GetName returns provider name
	GetName() string

	// IsEnabled returns whether provider is enabled
	IsEnabled() bool

	// ClassifyHeadline returns the model's label for headline
	ClassifyHeadline(ctx context.Context, headline string) (models.Sentiment, error)
}

// NewProviders builds enabled providers in the configured order
func NewProviders(cfg *config.AIConfig) ([]SentimentProvider, error) {
	providers := make([]SentimentProvider, 0, len(cfg.ProviderOrder))

	for _, name := range cfg.GetEnabledAIProviders() {
		providerCfg, _ := cfg.Provider(name)

		var p SentimentProvider
		switch name {
		case "openai":
			p = NewOpenAIProvider(providerCfg)
		case "deepseek":
			p = NewDeepSeekProvider(providerCfg)
		case "claude":
			p = NewClaudeProvider(providerCfg)
		case "gemini":
			p = NewGeminiProvider(providerCfg)
		default:
			return nil, fmt.Errorf("unsupported AI provider %q", name)
		}

		providers = append(providers, p)
	}

	if len(providers) == 0 {
		logger.Warn("no AI sentiment providers enabled, keyword heuristic only")
	} else {
		logger.Info("AI sentiment providers initialized",
			zap.Strings("providers", providerNames(providers)),
		)
	}

	return providers, nil
}

func providerNames(providers []SentimentProvider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.GetName()
	}
	return names
}

func modelOrDefault(model, fallback string) string {
	if strings.TrimSpace(model) == "" {
		return fallback
	}
	return model
}

func urlOrDefault(baseURL, fallback string) string {
	if strings.TrimSpace(baseURL) == "" {
		return fallback
	}
	return strings.TrimRight(baseURL, "/")
}
