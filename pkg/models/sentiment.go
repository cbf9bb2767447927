package models

import (
	"fmt"
	"strings"
	"time"
)

// Sentiment is the label attached to a headline
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Sentiments lists every valid label in declaration order
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// ParseSentiment maps free-form model output onto a label.
// Case and surrounding whitespace/punctuation are ignored.
func ParseSentiment(raw string) (Sentiment, error) {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".,!?\"'`*"))
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s), nil
	}
	return "", fmt.Errorf("invalid sentiment label %q", raw)
}

// IsValid reports whether s is one of the three labels
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

func (s Sentiment) String() string {
	return string(s)
}

// Headline is a classified news title
type Headline struct {
	Title     string    `json:"title"`
	Sentiment Sentiment `json:"sentiment"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

// SentimentRecord is one resolution result. Rows are append-only.
type SentimentRecord struct {
	Timestamp        time.Time  `json:"timestamp" db:"timestamp"`
	Symbol           string     `json:"symbol" db:"symbol"`
	OverallSentiment Sentiment  `json:"overall_sentiment,omitempty" db:"overall_sentiment"`
	Headlines        []Headline `json:"headlines" db:"-"`
	ID               int64      `json:"-" db:"id"`
}

// HasSynthetic reports whether any headline is a locally generated placeholder
func (r *SentimentRecord) HasSynthetic() bool {
	for _, h := range r.Headlines {
		if h.Synthetic {
			return true
		}
	}
	return false
}

// Article is a raw title returned by a news source
type Article struct {
	Title     string
	Synthetic bool
}

// HeadlineBatch is the ordered result of one news lookup
type HeadlineBatch struct {
	Provider string
	Articles []Article
}

// Titles returns article titles in retrieval order
func (b *HeadlineBatch) Titles() []string {
	titles := make([]string, len(b.Articles))
	for i, a := range b.Articles {
		titles[i] = a.Title
	}
	return titles
}

// IsSynthetic reports whether the whole batch is placeholder data
func (b *HeadlineBatch) IsSynthetic() bool {
	if len(b.Articles) == 0 {
		return false
	}
	for _, a := range b.Articles {
		if !a.Synthetic {
			return false
		}
	}
	return true
}
