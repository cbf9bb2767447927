package records

import (
	"context"
	"time"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// Store persists sentiment records. Records are append-only; the only
// removal path is PurgeOlderThan.
type Store interface {
	// FindRecent returns the newest record for symbol with timestamp >= since, nil when none
	FindRecent(ctx context.Context, symbol string, since time.Time) (*models.SentimentRecord, error)

	// Append inserts record and assigns its ID
	Append(ctx context.Context, record *models.SentimentRecord) error

	// FindHistory returns records for symbol with timestamp >= since, newest first
	FindHistory(ctx context.Context, symbol string, since time.Time) ([]models.SentimentRecord, error)

	// FindBySymbol returns records for symbol newest first; limit 0 means all
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SentimentRecord, error)

	// ListDistinctSymbols returns every stored symbol in ascending order
	ListDistinctSymbols(ctx context.Context) ([]string, error)

	// PurgeOlderThan deletes records with timestamp < cutoff and returns the count
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
