package coordinator

import (
	"errors"

	"github.com/selivandex/sentiment-proxy/pkg/metrics"
)

var (
	// ErrInvalidSymbol is returned for symbols outside [A-Z0-9.-]{1,10}
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrNoArticlesFound is returned when the news source yields nothing
	ErrNoArticlesFound = errors.New("no articles found")

	// ErrUpstreamUnavailable is returned when headlines could not be obtained
	// or classified before the caller's deadline
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStoreUnavailable is returned when the record store fails
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// outcome maps a resolve result to its metrics label
func outcome(res *Resolution, err error) string {
	switch {
	case err == nil && res != nil && res.CacheHit:
		return metrics.OutcomeHit
	case err == nil:
		return metrics.OutcomeMiss
	case errors.Is(err, ErrInvalidSymbol):
		return metrics.OutcomeInvalidSymbol
	case errors.Is(err, ErrNoArticlesFound):
		return metrics.OutcomeNoArticles
	case errors.Is(err, ErrUpstreamUnavailable):
		return metrics.OutcomeUpstreamUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return metrics.OutcomeStoreUnavailable
	default:
		return metrics.OutcomeError
	}
}
