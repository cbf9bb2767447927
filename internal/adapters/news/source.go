package news

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// SyntheticProvider names batches built from placeholder titles
const SyntheticProvider = "synthetic"

const (
	defaultMaxHeadlines = 3
	missingTitle        = "No Title Found"
)

var syntheticTemplates = []string{
	"%s stock shows strong performance in recent trading",
	"Market analysts review %s financial outlook",
	"Investors show interest in %s stock movement",
}

// Source resolves a symbol to a bounded, ordered list of headlines.
// Providers are tried in order; the first one that yields a usable title wins.
type Source struct {
	providers         []Provider
	maxHeadlines      int
	syntheticFallback bool
}

// NewSource creates news source
func NewSource(providers []Provider, maxHeadlines int, syntheticFallback bool) *Source {
	if maxHeadlines <= 0 {
		maxHeadlines = defaultMaxHeadlines
	}

	enabled := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil && p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}

	return &Source{
		providers:         enabled,
		maxHeadlines:      maxHeadlines,
		syntheticFallback: syntheticFallback,
	}
}

// Fetch never returns provider errors. When no provider yields a title the
// batch is synthetic, or empty if synthetic fallback is disabled.
func (s *Source) Fetch(ctx context.Context, symbol string) (*models.HeadlineBatch, error) {
	for _, p := range s.providers {
		if ctx.Err() != nil {
			break
		}

		titles, err := p.FetchHeadlines(ctx, symbol, s.maxHeadlines)
		if err != nil {
			logger.Warn("news provider failed",
				zap.String("provider", p.GetName()),
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}

		titles = cleanTitles(titles, s.maxHeadlines)
		if len(titles) == 0 {
			logger.Debug("news provider returned no usable titles",
				zap.String("provider", p.GetName()),
				zap.String("symbol", symbol),
			)
			continue
		}

		batch := &models.HeadlineBatch{
			Provider: p.GetName(),
			Articles: make([]models.Article, len(titles)),
		}
		for i, title := range titles {
			batch.Articles[i] = models.Article{Title: title}
		}

		logger.Debug("fetched headlines",
			zap.String("provider", p.GetName()),
			zap.String("symbol", symbol),
			zap.Int("count", len(titles)),
		)

		return batch, nil
	}

	if !s.syntheticFallback {
		return &models.HeadlineBatch{}, nil
	}

	logger.Info("no real headlines found, using synthetic placeholders",
		zap.String("symbol", symbol),
	)

	return SyntheticBatch(symbol, s.maxHeadlines), nil
}

// SyntheticBatch builds n placeholder headlines mentioning symbol
func SyntheticBatch(symbol string, n int) *models.HeadlineBatch {
	batch := &models.HeadlineBatch{
		Provider: SyntheticProvider,
		Articles: make([]models.Article, n),
	}

	for i := 0; i < n; i++ {
		batch.Articles[i] = models.Article{
			Title:     fmt.Sprintf(syntheticTemplates[i%len(syntheticTemplates)], symbol),
			Synthetic: true,
		}
	}

	return batch
}

// cleanTitles drops blank, placeholder and duplicate titles, keeping order
func cleanTitles(titles []string, limit int) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, limit)

	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" || title == missingTitle {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}

		out = append(out, title)
		if len(out) == limit {
			break
		}
	}

	return out
}
