package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/internal/sentiment"
	"github.com/selivandex/sentiment-proxy/pkg/metrics"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

var now = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type failingStore struct {
	*records.MemoryStore
	findErr   error
	appendErr error
}

func (s *failingStore) FindRecent(ctx context.Context, symbol string, since time.Time) (*models.SentimentRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindRecent(ctx, symbol, since)
}

func (s *failingStore) Append(ctx context.Context, r *models.SentimentRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MemoryStore.Append(ctx, r)
}

type fakeNews struct {
	batch *models.HeadlineBatch
	err   error
	calls atomic.Int32
}

func (f *fakeNews) Fetch(ctx context.Context, symbol string) (*models.HeadlineBatch, error) {
	f.calls.Add(1)
	return f.batch, f.err
}

func realBatch(titles ...string) *models.HeadlineBatch {
	b := &models.HeadlineBatch{Provider: "test"}
	for _, t := range titles {
		b.Articles = append(b.Articles, models.Article{Title: t})
	}
	return b
}

// heuristicClassifier labels with the keyword heuristic, with per-title overrides
type heuristicClassifier struct {
	errs   map[string]error
	labels map[string]models.Sentiment
	delays map[string]time.Duration
	calls  atomic.Int32
}

func (h *heuristicClassifier) Classify(ctx context.Context, text string) (sentiment.Result, error) {
	h.calls.Add(1)

	if d, ok := h.delays[text]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return sentiment.Result{}, ctx.Err()
		}
	}
	if err, ok := h.errs[text]; ok {
		return sentiment.Result{}, err
	}
	if l, ok := h.labels[text]; ok {
		return sentiment.Result{Label: l, Source: "stub"}, nil
	}
	return sentiment.Result{Label: sentiment.KeywordHeuristic(text), Source: sentiment.SourceKeyword}, nil
}

type captureRecorder struct {
	mu      sync.Mutex
	metrics []*metrics.ResolutionMetric
}

func (c *captureRecorder) RecordResolution(m *metrics.ResolutionMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, m)
}

func TestResolve_ComputesOnMiss(t *testing.T) {
	store := records.NewMemoryStore()
	news := &fakeNews{batch: realBatch("ACME profit soars", "ACME faces recession risk", "ACME stable outlook")}
	rec := &captureRecorder{}

	c := New(store, news, &heuristicClassifier{}, WithClock(fixedClock), WithRecorder(rec))

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.CacheHit || !res.Persisted {
		t.Errorf("unexpected flags: %+v", res)
	}

	want := []models.Sentiment{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral}
	for i, h := range res.Record.Headlines {
		if h.Sentiment != want[i] {
			t.Errorf("headline %d = %s, want %s", i, h.Sentiment, want[i])
		}
	}
	if res.Record.Headlines[0].Title != "ACME profit soars" {
		t.Errorf("headline order not preserved: %+v", res.Record.Headlines)
	}
	if res.Record.OverallSentiment != models.SentimentPositive {
		t.Errorf("overall = %s, want positive", res.Record.OverallSentiment)
	}
	if !res.Record.Timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", res.Record.Timestamp, now)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want 1", store.Len())
	}

	if len(rec.metrics) != 1 || rec.metrics[0].Outcome != metrics.OutcomeMiss || rec.metrics[0].HeadlineCount != 3 {
		t.Errorf("unexpected metrics: %+v", rec.metrics)
	}
}

func TestResolve_CacheHitIsIdempotent(t *testing.T) {
	store := records.NewMemoryStore()
	news := &fakeNews{batch: realBatch("ACME profit soars")}
	classifier := &heuristicClassifier{}

	clock := now
	c := New(store, news, classifier, WithClock(func() time.Time { return clock }))

	first, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}

	clock = now.Add(9 * time.Minute)
	second, err := c.Resolve(context.Background(), "acme ")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if !second.CacheHit {
		t.Error("expected cache hit within window")
	}
	if second.Record.ID != first.Record.ID || !second.Record.Timestamp.Equal(first.Record.Timestamp) {
		t.Errorf("cached record differs: %+v vs %+v", second.Record, first.Record)
	}
	if news.calls.Load() != 1 || classifier.calls.Load() != 1 {
		t.Errorf("cache hit triggered recomputation: news=%d classify=%d", news.calls.Load(), classifier.calls.Load())
	}
	if store.Len() != 1 {
		t.Errorf("cache hit wrote a record")
	}
}

func TestResolve_StaleRecordRecomputes(t *testing.T) {
	store := records.NewMemoryStore()
	_ = store.Append(context.Background(), &models.SentimentRecord{
		Symbol:           "ACME",
		Timestamp:        now.Add(-FreshnessWindow - time.Second),
		Headlines:        []models.Headline{{Title: "old", Sentiment: models.SentimentNegative}},
		OverallSentiment: models.SentimentNegative,
	})

	news := &fakeNews{batch: realBatch("ACME profit soars")}
	c := New(store, news, &heuristicClassifier{}, WithClock(fixedClock))

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.CacheHit {
		t.Error("stale record should not be served")
	}
	if store.Len() != 2 {
		t.Errorf("store has %d records, want 2 (append-only)", store.Len())
	}
}

func TestResolve_WindowBoundaryIsFresh(t *testing.T) {
	store := records.NewMemoryStore()
	_ = store.Append(context.Background(), &models.SentimentRecord{
		Symbol:           "ACME",
		Timestamp:        now.Add(-FreshnessWindow),
		Headlines:        []models.Headline{{Title: "edge", Sentiment: models.SentimentNeutral}},
		OverallSentiment: models.SentimentNeutral,
	})

	news := &fakeNews{}
	c := New(store, news, &heuristicClassifier{}, WithClock(fixedClock))

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.CacheHit {
		t.Error("record exactly at window edge should be served")
	}
}

func TestResolve_PerHeadlineDegradation(t *testing.T) {
	store := records.NewMemoryStore()
	news := &fakeNews{batch: realBatch("ACME profit soars", "ACME broken headline", "ACME weird headline")}
	classifier := &heuristicClassifier{
		errs:   map[string]error{"ACME broken headline": errors.New("quota exceeded")},
		labels: map[string]models.Sentiment{"ACME weird headline": models.Sentiment("bullish")},
	}

	c := New(store, news, classifier, WithClock(fixedClock))

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Record.Headlines[1].Sentiment != models.SentimentNeutral || res.Record.Headlines[2].Sentiment != models.SentimentNeutral {
		t.Errorf("failed headlines should be neutral: %+v", res.Record.Headlines)
	}
	if res.Record.Headlines[0].Sentiment != models.SentimentPositive {
		t.Errorf("healthy headline affected: %+v", res.Record.Headlines[0])
	}
	if res.Degraded != 2 {
		t.Errorf("degraded = %d, want 2", res.Degraded)
	}
	if res.Record.OverallSentiment != models.SentimentNeutral {
		t.Errorf("overall = %s, want neutral", res.Record.OverallSentiment)
	}
}

func TestResolve_SlowHeadlineDoesNotBlockOthers(t *testing.T) {
	news := &fakeNews{batch: realBatch("a", "b", "c")}
	classifier := &heuristicClassifier{
		delays: map[string]time.Duration{"a": 100 * time.Millisecond},
	}

	c := New(records.NewMemoryStore(), news, classifier, WithClock(fixedClock), WithMaxConcurrency(3))

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Record.Headlines) != 3 || res.Record.Headlines[0].Title != "a" {
		t.Errorf("unexpected headlines: %+v", res.Record.Headlines)
	}
}

func TestResolve_SyntheticFlagPropagates(t *testing.T) {
	batch := &models.HeadlineBatch{Provider: "synthetic", Articles: []models.Article{
		{Title: "ZZZ stock shows strong performance in recent trading", Synthetic: true},
		{Title: "Market analysts review ZZZ financial outlook", Synthetic: true},
	}}

	c := New(records.NewMemoryStore(), &fakeNews{batch: batch}, &heuristicClassifier{}, WithClock(fixedClock))

	res, err := c.Resolve(context.Background(), "ZZZ")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !res.Synthetic {
		t.Error("resolution should be synthetic")
	}
	for _, h := range res.Record.Headlines {
		if !h.Synthetic {
			t.Errorf("headline %q lost synthetic flag", h.Title)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name        string
		symbol      string
		store       records.Store
		news        *fakeNews
		persistMode string
		wantErr     error
	}{
		{
			name:    "empty symbol",
			symbol:  "  ",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "symbol too long",
			symbol:  "ABCDEFGHIJK",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "symbol with space",
			symbol:  "AC ME",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{},
			wantErr: ErrInvalidSymbol,
		},
		{
			name:    "no articles",
			symbol:  "ACME",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{batch: &models.HeadlineBatch{}},
			wantErr: ErrNoArticlesFound,
		},
		{
			name:    "nil batch",
			symbol:  "ACME",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{},
			wantErr: ErrNoArticlesFound,
		},
		{
			name:    "only blank titles",
			symbol:  "ACME",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{batch: realBatch("", "  ")},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name:    "news error",
			symbol:  "ACME",
			store:   records.NewMemoryStore(),
			news:    &fakeNews{err: errors.New("dns failure")},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name:    "store read failure",
			symbol:  "ACME",
			store:   &failingStore{MemoryStore: records.NewMemoryStore(), findErr: errors.New("connection refused")},
			news:    &fakeNews{batch: realBatch("x")},
			wantErr: ErrStoreUnavailable,
		},
		{
			name:        "strict write failure",
			symbol:      "ACME",
			store:       &failingStore{MemoryStore: records.NewMemoryStore(), appendErr: errors.New("disk full")},
			news:        &fakeNews{batch: realBatch("x")},
			persistMode: config.PersistStrict,
			wantErr:     ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithClock(fixedClock)}
			if tt.persistMode != "" {
				opts = append(opts, WithPersistMode(tt.persistMode))
			}

			c := New(tt.store, tt.news, &heuristicClassifier{}, opts...)

			res, err := c.Resolve(context.Background(), tt.symbol)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("expected nil resolution, got %+v", res)
			}
		})
	}
}

func TestResolve_InvalidSymbolSkipsStore(t *testing.T) {
	store := &failingStore{MemoryStore: records.NewMemoryStore(), findErr: errors.New("must not be called")}
	news := &fakeNews{}

	c := New(store, news, &heuristicClassifier{})

	if _, err := c.Resolve(context.Background(), "$$$"); !errors.Is(err, ErrInvalidSymbol) {
		t.Fatalf("err = %v", err)
	}
	if news.calls.Load() != 0 {
		t.Error("news fetched for invalid symbol")
	}
}

func TestResolve_BestEffortPersistence(t *testing.T) {
	store := &failingStore{MemoryStore: records.NewMemoryStore(), appendErr: errors.New("disk full")}
	news := &fakeNews{batch: realBatch("ACME profit soars")}
	rec := &captureRecorder{}

	c := New(store, news, &heuristicClassifier{},
		WithClock(fixedClock),
		WithPersistMode(config.PersistBestEffort),
		WithRecorder(rec),
	)

	res, err := c.Resolve(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Persisted {
		t.Error("Persisted should be false")
	}
	if res.Record.OverallSentiment != models.SentimentPositive {
		t.Errorf("overall = %s", res.Record.OverallSentiment)
	}
	if store.Len() != 0 {
		t.Error("nothing should be stored")
	}
	if len(rec.metrics) != 1 || rec.metrics[0].Persisted {
		t.Errorf("metric should report unpersisted: %+v", rec.metrics)
	}
}

func TestResolve_DeadlineDuringClassification(t *testing.T) {
	store := records.NewMemoryStore()
	news := &fakeNews{batch: realBatch("fast", "slow")}
	classifier := &heuristicClassifier{
		delays: map[string]time.Duration{"slow": 5 * time.Second},
	}

	c := New(store, news, classifier, WithClock(fixedClock))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := c.Resolve(ctx, "ACME")

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if res != nil {
		t.Errorf("expected nil resolution")
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("resolve did not abandon outstanding work")
	}
	if store.Len() != 0 {
		t.Error("no record should be written after deadline")
	}
}

func TestResolve_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	titles := []string{"a", "b", "c", "d", "e", "f"}
	news := &fakeNews{batch: realBatch(titles...)}

	classifier := classifierFunc(func(ctx context.Context, text string) (sentiment.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return sentiment.Result{Label: models.SentimentNeutral}, nil
	})

	c := New(records.NewMemoryStore(), news, classifier, WithClock(fixedClock), WithMaxConcurrency(2))

	if _, err := c.Resolve(context.Background(), "ACME"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

type classifierFunc func(ctx context.Context, text string) (sentiment.Result, error)

func (f classifierFunc) Classify(ctx context.Context, text string) (sentiment.Result, error) {
	return f(ctx, text)
}

func TestResolve_ConcurrentMissesAppendIndependently(t *testing.T) {
	store := records.NewMemoryStore()
	news := &fakeNews{batch: realBatch("ACME profit soars")}
	classifier := &heuristicClassifier{
		delays: map[string]time.Duration{"ACME profit soars": 50 * time.Millisecond},
	}

	c := New(store, news, classifier, WithClock(fixedClock))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Resolve(context.Background(), "ACME"); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.Len() < 1 || store.Len() > 2 {
		t.Errorf("store has %d records, want 1 or 2", store.Len())
	}

	latest, err := store.FindRecent(context.Background(), "ACME", now.Add(-FreshnessWindow))
	if err != nil || latest == nil {
		t.Fatalf("no record queryable after concurrent misses: %v", err)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "aapl", want: "AAPL"},
		{in: " brk.b ", want: "BRK.B"},
		{in: "RDS-A", want: "RDS-A"},
		{in: "0700", want: "0700"},
		{in: "", wantErr: true},
		{in: "AAPL!", wantErr: true},
		{in: "ABCDEFGHIJ", want: "ABCDEFGHIJ"},
		{in: "ABCDEFGHIJK", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSymbol) {
					t.Errorf("err = %v, want ErrInvalidSymbol", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NormalizeSymbol(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}
