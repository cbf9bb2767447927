package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

const eventRegistryAPIURL = "https://eventregistry.org/api/v1"

// EventRegistryProvider fetches headlines from EventRegistry (newsapi.ai).
// It looks up the company concept first and falls back to a keyword query.
type EventRegistryProvider struct {
	apiKey  string
	baseURL string
	enabled bool
	client  *http.Client
}

// NewEventRegistryProvider creates new EventRegistry provider
func NewEventRegistryProvider(cfg *config.NewsProviderConfig, timeout time.Duration) *EventRegistryProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = eventRegistryAPIURL
	}

	return &EventRegistryProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		enabled: cfg.Enabled && cfg.APIKey != "",
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *EventRegistryProvider) GetName() string {
	return "eventregistry"
}

func (e *EventRegistryProvider) IsEnabled() bool {
	return e.enabled
}

func (e *EventRegistryProvider) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if !e.enabled {
		return nil, nil
	}

	conceptURI, err := e.conceptURI(ctx, symbol)
	if err != nil {
		logger.Debug("concept lookup failed, using keyword search",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	if conceptURI == "" {
		return e.queryArticles(ctx, articleQuery{Keyword: symbol + " stock OR " + symbol + " company"}, limit)
	}

	titles, err := e.queryArticles(ctx, articleQuery{ConceptURI: conceptURI}, limit)
	if err == nil && len(titles) > 0 {
		return titles, nil
	}
	if err != nil {
		logger.Debug("concept query failed, using keyword search",
			zap.String("symbol", symbol),
			zap.String("concept", conceptURI),
			zap.Error(err),
		)
	}

	return e.queryArticles(ctx, articleQuery{Keyword: symbol + " stock"}, limit)
}

// conceptURI returns the best matching concept for symbol, empty when none
func (e *EventRegistryProvider) conceptURI(ctx context.Context, symbol string) (string, error) {
	params := url.Values{}
	params.Set("prefix", symbol)
	params.Set("lang", "eng")
	params.Set("apiKey", e.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/suggestConceptsFast?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	var concepts []struct {
		URI  string `json:"uri"`
		Type string `json:"type"`
	}
	if err := e.do(req, &concepts); err != nil {
		return "", err
	}

	for _, c := range concepts {
		if c.URI != "" {
			return c.URI, nil
		}
	}

	return "", nil
}

type articleQuery struct {
	ConceptURI string
	Keyword    string
}

func (e *EventRegistryProvider) queryArticles(ctx context.Context, q articleQuery, limit int) ([]string, error) {
	body := map[string]interface{}{
		"action":         "getArticles",
		"resultType":     "articles",
		"articlesSortBy": "date",
		"articlesCount":  limit,
		"lang":           "eng",
		"apiKey":         e.apiKey,
	}
	if q.ConceptURI != "" {
		body["conceptUri"] = q.ConceptURI
	} else {
		body["keyword"] = q.Keyword
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/article/getArticles", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		Articles struct {
			Results []struct {
				Title string `json:"title"`
			} `json:"results"`
		} `json:"articles"`
	}
	if err := e.do(req, &result); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(result.Articles.Results))
	for _, a := range result.Articles.Results {
		titles = append(titles, a.Title)
	}

	return titles, nil
}

func (e *EventRegistryProvider) do(req *http.Request, out interface{}) error {
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// redactURLError drops the query string, which carries the API key, from
// transport errors before they reach logs
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	redacted := ""
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		redacted = u.String()
	}

	return &url.Error{Op: urlErr.Op, URL: redacted, Err: urlErr.Err}
}
