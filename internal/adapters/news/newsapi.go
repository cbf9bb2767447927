package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
)

const newsAPIURL = "https://newsapi.org/v2"

// NewsAPIProvider fetches headlines from newsapi.org
type NewsAPIProvider struct {
	apiKey  string
	baseURL string
	enabled bool
	client  *http.Client
}

// NewNewsAPIProvider creates new NewsAPI provider
func NewNewsAPIProvider(cfg *config.NewsProviderConfig, timeout time.Duration) *NewsAPIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = newsAPIURL
	}

	return &NewsAPIProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		enabled: cfg.Enabled && cfg.APIKey != "",
		client:  &http.Client{Timeout: timeout},
	}
}

func (n *NewsAPIProvider) GetName() string {
	return "newsapi"
}

func (n *NewsAPIProvider) IsEnabled() bool {
	return n.enabled
}

func (n *NewsAPIProvider) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if !n.enabled {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", symbol+" stock")
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Title string `json:"title"`
		} `json:"articles"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s", result.Message)
	}

	titles := make([]string, 0, len(result.Articles))
	for _, a := range result.Articles {
		// removed articles come back as "[Removed]"
		if a.Title == "[Removed]" {
			continue
		}
		titles = append(titles, a.Title)
	}

	return titles, nil
}
