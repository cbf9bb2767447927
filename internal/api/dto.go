package api

import (
	"time"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// SentimentRequest is the body of POST /news-sentiment
type SentimentRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// SentimentResponse is one sentiment record as served to clients
type SentimentResponse struct {
	Symbol           string            `json:"symbol"`
	Timestamp        time.Time         `json:"timestamp"`
	Headlines        []models.Headline `json:"headlines"`
	OverallSentiment *string           `json:"overall_sentiment"`
}

// SymbolsResponse lists stored symbols
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// ErrorResponse carries a client-safe message
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func toResponse(r *models.SentimentRecord) SentimentResponse {
	resp := SentimentResponse{
		Symbol:    r.Symbol,
		Timestamp: r.Timestamp.UTC(),
		Headlines: r.Headlines,
	}
	if resp.Headlines == nil {
		resp.Headlines = []models.Headline{}
	}
	if r.OverallSentiment != "" {
		s := r.OverallSentiment.String()
		resp.OverallSentiment = &s
	}
	return resp
}

func toResponses(records []models.SentimentRecord) []SentimentResponse {
	out := make([]SentimentResponse, len(records))
	for i := range records {
		out[i] = toResponse(&records[i])
	}
	return out
}
