package metrics

import "time"

// Resolution outcomes
const (
	OutcomeHit                 = "hit"
	OutcomeMiss                = "miss"
	OutcomeInvalidSymbol       = "invalid_symbol"
	OutcomeNoArticles          = "no_articles"
	OutcomeUpstreamUnavailable = "upstream_unavailable"
	OutcomeStoreUnavailable    = "store_unavailable"
	OutcomeError               = "error"
)

// ResolutionTable is the ClickHouse table receiving ResolutionMetric rows
const ResolutionTable = "sentiment_resolutions"

// ResolutionMetric describes one coordinator resolve call
type ResolutionMetric struct {
	Timestamp        time.Time
	Symbol           string
	Outcome          string
	HeadlineCount    int
	DegradedCount    int
	Synthetic        bool
	OverallSentiment string
	Persisted        bool
	Duration         time.Duration
}

// Succeeded reports whether the call returned a record
func (m *ResolutionMetric) Succeeded() bool {
	return m.Outcome == OutcomeHit || m.Outcome == OutcomeMiss
}

func (m *ResolutionMetric) TableName() string {
	return ResolutionTable
}

// Values follows column order of sentiment_resolutions
func (m *ResolutionMetric) Values() []interface{} {
	return []interface{}{
		m.Timestamp,
		m.Symbol,
		boolToUInt8(m.Outcome == OutcomeHit),
		uint16(m.HeadlineCount),
		uint16(m.DegradedCount),
		boolToUInt8(m.Synthetic),
		m.OverallSentiment,
		boolToUInt8(m.Persisted),
		uint32(m.Duration.Milliseconds()),
	}
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
