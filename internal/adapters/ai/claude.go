package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

const (
	claudeAPIURL       = "https://api.anthropic.com/v1"
	defaultClaudeModel = "claude-3-5-haiku-latest"
)

// ClaudeProvider classifies headlines with the Anthropic Messages API
type ClaudeProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
	enabled bool
}

// NewClaudeProvider creates new Claude provider
func NewClaudeProvider(cfg *config.AIProviderConfig) *ClaudeProvider {
	return &ClaudeProvider{
		apiKey:  cfg.APIKey,
		baseURL: urlOrDefault(cfg.BaseURL, claudeAPIURL),
		model:   modelOrDefault(cfg.Model, defaultClaudeModel),
		enabled: cfg.IsUsable(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *ClaudeProvider) GetName() string {
	return "claude"
}

func (c *ClaudeProvider) IsEnabled() bool {
	return c.enabled
}

func (c *ClaudeProvider) ClassifyHeadline(ctx context.Context, headline string) (models.Sentiment, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  maxOutputTokens,
		"temperature": 0,
		"system":      sentimentSystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": buildSentimentPrompt(headline)},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	startTime := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	content := result.Content[0].Text

	logger.Debug("Claude response",
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", content),
	)

	return parseSentimentResponse(content)
}
