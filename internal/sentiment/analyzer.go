package sentiment

import (
	"strings"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// Analyzer performs keyword-based sentiment classification.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	positiveWords []string
	negativeWords []string
}

// NewAnalyzer creates analyzer with the default financial word lists
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithWords(positiveIndicators, negativeIndicators)
}

// NewAnalyzerWithWords creates analyzer with custom indicator lists
func NewAnalyzerWithWords(positive, negative []string) *Analyzer {
	return &Analyzer{
		positiveWords: lowerAll(positive),
		negativeWords: lowerAll(negative),
	}
}

var defaultAnalyzer = NewAnalyzer()

// KeywordHeuristic classifies text with the default analyzer
func KeywordHeuristic(text string) models.Sentiment {
	return defaultAnalyzer.Classify(text)
}

// Classify returns positive or negative when that side has strictly more
// indicator matches, neutral otherwise (including empty text)
func (a *Analyzer) Classify(text string) models.Sentiment {
	positive, negative := a.Count(text)

	switch {
	case positive > negative:
		return models.SentimentPositive
	case negative > positive:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Count returns how many indicator words of each list occur in text.
// Matching is by substring, so "upgrade" hits "up" and "soars" hits "soar".
// Each word counts at most once however often it repeats.
func (a *Analyzer) Count(text string) (positive, negative int) {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return 0, 0
	}

	return countPresent(lower, a.positiveWords), countPresent(lower, a.negativeWords)
}

func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

var positiveIndicators = []string{
	"profit", "growth", "gain", "surge", "rally", "boost", "rise", "up", "bullish",
	"positive", "strong", "beat", "exceed", "outperform", "success", "win", "increase",
	"soar", "climb", "advance", "optimistic", "confident", "breakthrough", "improved",
}

var negativeIndicators = []string{
	"loss", "decline", "fall", "drop", "crash", "bear", "down", "weak", "miss",
	"underperform", "fail", "decrease", "plunge", "tumble", "sink", "negative",
	"recession", "crisis", "concern", "worry", "fear", "risk", "warning", "cut",
}
