package sentiment

import "github.com/selivandex/sentiment-proxy/pkg/models"

// Aggregate returns the most frequent label. Ties go to the label whose first
// occurrence comes earliest in labels. An empty slice yields neutral.
func Aggregate(labels []models.Sentiment) models.Sentiment {
	if len(labels) == 0 {
		return models.SentimentNeutral
	}

	counts := make(map[models.Sentiment]int, len(models.Sentiments))
	order := make([]models.Sentiment, 0, len(models.Sentiments))

	for _, label := range labels {
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}

	return best
}

// AggregateHeadlines computes the overall label of a headline sequence
func AggregateHeadlines(headlines []models.Headline) models.Sentiment {
	labels := make([]models.Sentiment, len(headlines))
	for i, h := range headlines {
		labels[i] = h.Sentiment
	}
	return Aggregate(labels)
}

// Breakdown counts headlines per label
func Breakdown(headlines []models.Headline) map[models.Sentiment]int {
	counts := make(map[models.Sentiment]int, len(models.Sentiments))
	for _, s := range models.Sentiments {
		counts[s] = 0
	}
	for _, h := range headlines {
		counts[h.Sentiment]++
	}
	return counts
}
