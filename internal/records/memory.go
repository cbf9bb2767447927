package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.SentimentRecord
	nextID  int64
}

// NewMemoryStore creates empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) FindRecent(ctx context.Context, symbol string, since time.Time) (*models.SentimentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *models.SentimentRecord
	for i := range m.records {
		r := &m.records[i]
		if r.Symbol != symbol || r.Timestamp.Before(since) {
			continue
		}
		if best == nil || newer(r, best) {
			best = r
		}
	}

	if best == nil {
		return nil, nil
	}

	rec := cloneRecord(*best)
	return &rec, nil
}

func (m *MemoryStore) Append(ctx context.Context, record *models.SentimentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	record.ID = m.nextID
	m.records = append(m.records, cloneRecord(*record))

	return nil
}

func (m *MemoryStore) FindHistory(ctx context.Context, symbol string, since time.Time) ([]models.SentimentRecord, error) {
	return m.filter(func(r *models.SentimentRecord) bool {
		return r.Symbol == symbol && !r.Timestamp.Before(since)
	}, 0), nil
}

func (m *MemoryStore) FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SentimentRecord, error) {
	return m.filter(func(r *models.SentimentRecord) bool {
		return r.Symbol == symbol
	}, limit), nil
}

func (m *MemoryStore) ListDistinctSymbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, r := range m.records {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		symbols = append(symbols, r.Symbol)
	}

	sort.Strings(symbols)
	return symbols, nil
}

func (m *MemoryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept

	return deleted, nil
}

// Len returns number of stored records
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryStore) filter(match func(*models.SentimentRecord) bool, limit int) []models.SentimentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.SentimentRecord, 0)
	for i := range m.records {
		if match(&m.records[i]) {
			out = append(out, cloneRecord(m.records[i]))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return newer(&out[i], &out[j])
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

func newer(a, b *models.SentimentRecord) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}

// cloneRecord copies headlines so callers never share backing arrays
func cloneRecord(r models.SentimentRecord) models.SentimentRecord {
	r.Headlines = append([]models.Headline{}, r.Headlines...)
	return r
}
