package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider classifies headlines through an OpenAI-compatible chat API
type OpenAIProvider struct {
	client  *openai.Client
	name    string
	model   string
	enabled bool
}

// NewOpenAIProvider creates new OpenAI provider
func NewOpenAIProvider(cfg *config.AIProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = urlOrDefault(cfg.BaseURL, clientCfg.BaseURL)
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return newChatProvider("openai", clientCfg, modelOrDefault(cfg.Model, defaultOpenAIModel), cfg.IsUsable())
}

func newChatProvider(name string, clientCfg openai.ClientConfig, model string, enabled bool) *OpenAIProvider {
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		name:    name,
		model:   model,
		enabled: enabled,
	}
}

func (o *OpenAIProvider) GetName() string {
	return o.name
}

func (o *OpenAIProvider) IsEnabled() bool {
	return o.enabled
}

func (o *OpenAIProvider) ClassifyHeadline(ctx context.Context, headline string) (models.Sentiment, error) {
	startTime := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSentimentPrompt(headline)},
		},
		Temperature: 0,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", o.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", o.name)
	}

	content := resp.Choices[0].Message.Content

	logger.Debug("sentiment model response",
		zap.String("provider", o.name),
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", content),
	)

	return parseSentimentResponse(content)
}
