package ai

import (
	"fmt"
	"strings"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

const sentimentSystemPrompt = "You are a financial news analyst. Classify the sentiment of headlines for investors."

const sentimentPromptTemplate = `Analyze the sentiment of the following financial news headline.
Respond with only a single word: 'positive', 'negative', or 'neutral'.

Headline: "%s"
Sentiment:`

// maxOutputTokens keeps the completion to a single word
const maxOutputTokens = 5

func buildSentimentPrompt(headline string) string {
	return fmt.Sprintf(sentimentPromptTemplate, strings.ReplaceAll(headline, `"`, `'`))
}

// parseSentimentResponse extracts a label from model output. A bare label is
// accepted as is; otherwise the reply must mention exactly one distinct label.
func parseSentimentResponse(content string) (models.Sentiment, error) {
	if s, err := models.ParseSentiment(content); err == nil {
		return s, nil
	}

	var found models.Sentiment
	for _, word := range strings.Fields(content) {
		s, err := models.ParseSentiment(word)
		if err != nil {
			continue
		}
		if found != "" && found != s {
			return "", fmt.Errorf("ambiguous sentiment response %q", content)
		}
		found = s
	}

	if found == "" {
		return "", fmt.Errorf("no sentiment label in response %q", content)
	}

	return found, nil
}
