package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

const (
	geminiAPIURL       = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel = "gemini-1.5-flash"
)

// GeminiProvider classifies headlines with the Google Generative Language API
type GeminiProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
	enabled bool
}

// NewGeminiProvider creates new Gemini provider
func NewGeminiProvider(cfg *config.AIProviderConfig) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  cfg.APIKey,
		baseURL: urlOrDefault(cfg.BaseURL, geminiAPIURL),
		model:   modelOrDefault(cfg.Model, defaultGeminiModel),
		enabled: cfg.IsUsable(),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *GeminiProvider) GetName() string {
	return "gemini"
}

func (g *GeminiProvider) IsEnabled() bool {
	return g.enabled
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

func (g *GeminiProvider) ClassifyHeadline(ctx context.Context, headline string) (models.Sentiment, error) {
	reqBody := map[string]interface{}{
		"contents": []geminiContent{
			{Parts: []geminiPart{{Text: buildSentimentPrompt(headline)}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0,
			"maxOutputTokens": maxOutputTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		// url.Error would echo the key embedded in the query string
		return "", fmt.Errorf("request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	content := result.Candidates[0].Content.Parts[0].Text

	logger.Debug("Gemini response",
		zap.Duration("latency", time.Since(startTime)),
		zap.String("response", content),
	)

	return parseSentimentResponse(content)
}

func redactURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok {
		return urlErr.Err
	}
	return err
}
