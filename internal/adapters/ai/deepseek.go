package ai

import (
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
)

const (
	deepseekAPIURL       = "https://api.deepseek.com/v1"
	defaultDeepSeekModel = "deepseek-chat"
)

// NewDeepSeekProvider creates DeepSeek provider. DeepSeek speaks the OpenAI
// chat completions protocol, so it reuses the OpenAI client.
func NewDeepSeekProvider(cfg *config.AIProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = urlOrDefault(cfg.BaseURL, deepseekAPIURL)
	clientCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return newChatProvider("deepseek", clientCfg, modelOrDefault(cfg.Model, defaultDeepSeekModel), cfg.IsUsable())
}
