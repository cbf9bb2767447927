package records

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/selivandex/sentiment-proxy/pkg/models"
	"github.com/selivandex/sentiment-proxy/test/testdb"
)

var baseTime = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newRecord(symbol string, ts time.Time, overall models.Sentiment, titles ...string) *models.SentimentRecord {
	headlines := make([]models.Headline, len(titles))
	for i, title := range titles {
		headlines[i] = models.Headline{Title: title, Sentiment: models.SentimentNeutral}
	}
	return &models.SentimentRecord{
		Symbol:           symbol,
		Timestamp:        ts,
		Headlines:        headlines,
		OverallSentiment: overall,
	}
}

func mustAppend(t *testing.T, s Store, r *models.SentimentRecord) {
	t.Helper()
	if err := s.Append(context.Background(), r); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if r.ID == 0 {
		t.Fatalf("Append did not assign ID")
	}
}

// runStoreTests exercises the Store contract against any implementation
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("FindRecent returns newest within window", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-20*time.Minute), models.SentimentNegative, "old"))
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-5*time.Minute), models.SentimentPositive, "mid"))
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-2*time.Minute), models.SentimentNeutral, "new"))
		mustAppend(t, s, newRecord("OTHER", baseTime, models.SentimentNeutral, "other"))

		got, err := s.FindRecent(ctx, "ACME", baseTime.Add(-10*time.Minute))
		if err != nil {
			t.Fatalf("FindRecent failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected record")
		}
		if got.Headlines[0].Title != "new" || got.OverallSentiment != models.SentimentNeutral {
			t.Errorf("unexpected record: %+v", got)
		}
		if !got.Timestamp.Equal(baseTime.Add(-2 * time.Minute)) {
			t.Errorf("timestamp = %v", got.Timestamp)
		}
	})

	t.Run("FindRecent boundary is inclusive", func(t *testing.T) {
		s := newStore(t)
		since := baseTime.Add(-10 * time.Minute)
		mustAppend(t, s, newRecord("ACME", since, models.SentimentPositive, "edge"))

		got, err := s.FindRecent(ctx, "ACME", since)
		if err != nil {
			t.Fatalf("FindRecent failed: %v", err)
		}
		if got == nil {
			t.Fatal("record exactly at since should be found")
		}

		got, err = s.FindRecent(ctx, "ACME", since.Add(time.Microsecond))
		if err != nil {
			t.Fatalf("FindRecent failed: %v", err)
		}
		if got != nil {
			t.Errorf("record before since should not be found")
		}
	})

	t.Run("FindRecent on empty store", func(t *testing.T) {
		s := newStore(t)
		got, err := s.FindRecent(ctx, "ACME", baseTime)
		if err != nil || got != nil {
			t.Errorf("got %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("headline order and flags survive round trip", func(t *testing.T) {
		s := newStore(t)
		rec := &models.SentimentRecord{
			Symbol:    "ACME",
			Timestamp: baseTime,
			Headlines: []models.Headline{
				{Title: "b", Sentiment: models.SentimentPositive},
				{Title: "a", Sentiment: models.SentimentNegative, Synthetic: true},
				{Title: "c", Sentiment: models.SentimentNeutral},
			},
			OverallSentiment: models.SentimentPositive,
		}
		mustAppend(t, s, rec)

		got, err := s.FindRecent(ctx, "ACME", baseTime)
		if err != nil || got == nil {
			t.Fatalf("FindRecent: %v, %v", got, err)
		}

		var titles []string
		for _, h := range got.Headlines {
			titles = append(titles, h.Title)
		}
		if strings.Join(titles, "") != "bac" {
			t.Errorf("order = %v", titles)
		}
		if !got.Headlines[1].Synthetic || got.Headlines[0].Synthetic {
			t.Errorf("synthetic flags lost: %+v", got.Headlines)
		}
		if got.ID != rec.ID {
			t.Errorf("ID = %d, want %d", got.ID, rec.ID)
		}
	})

	t.Run("missing overall sentiment reads back empty", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, newRecord("ACME", baseTime, "", "legacy"))

		got, err := s.FindRecent(ctx, "ACME", baseTime)
		if err != nil || got == nil {
			t.Fatalf("FindRecent: %v, %v", got, err)
		}
		if got.OverallSentiment != "" {
			t.Errorf("overall = %q, want empty", got.OverallSentiment)
		}
	})

	t.Run("FindHistory newest first within range", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-40*24*time.Hour), models.SentimentNeutral, "ancient"))
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-2*24*time.Hour), models.SentimentNeutral, "two days"))
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-1*time.Hour), models.SentimentNeutral, "hour"))
		mustAppend(t, s, newRecord("OTHER", baseTime, models.SentimentNeutral, "other"))

		got, err := s.FindHistory(ctx, "ACME", baseTime.Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("FindHistory failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d records, want 2", len(got))
		}
		if got[0].Headlines[0].Title != "hour" || got[1].Headlines[0].Title != "two days" {
			t.Errorf("unexpected order: %s, %s", got[0].Headlines[0].Title, got[1].Headlines[0].Title)
		}
	})

	t.Run("FindBySymbol with limit", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 4; i++ {
			mustAppend(t, s, newRecord("ACME", baseTime.Add(time.Duration(i)*time.Hour), models.SentimentNeutral, "x"))
		}

		all, err := s.FindBySymbol(ctx, "ACME", 0)
		if err != nil {
			t.Fatalf("FindBySymbol failed: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("got %d, want 4", len(all))
		}

		limited, err := s.FindBySymbol(ctx, "ACME", 2)
		if err != nil {
			t.Fatalf("FindBySymbol failed: %v", err)
		}
		if len(limited) != 2 || !limited[0].Timestamp.Equal(baseTime.Add(3*time.Hour)) {
			t.Errorf("unexpected limited result: %+v", limited)
		}
	})

	t.Run("ListDistinctSymbols sorted", func(t *testing.T) {
		s := newStore(t)
		for _, sym := range []string{"MSFT", "AAPL", "MSFT", "BRK.B"} {
			mustAppend(t, s, newRecord(sym, baseTime, models.SentimentNeutral, "x"))
		}

		got, err := s.ListDistinctSymbols(ctx)
		if err != nil {
			t.Fatalf("ListDistinctSymbols failed: %v", err)
		}
		if strings.Join(got, ",") != "AAPL,BRK.B,MSFT" {
			t.Errorf("symbols = %v", got)
		}
	})

	t.Run("PurgeOlderThan removes only old records", func(t *testing.T) {
		s := newStore(t)
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-5*24*time.Hour), models.SentimentNeutral, "recent"))
		mustAppend(t, s, newRecord("ACME", baseTime.Add(-40*24*time.Hour), models.SentimentNeutral, "old"))

		deleted, err := s.PurgeOlderThan(ctx, baseTime.Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("PurgeOlderThan failed: %v", err)
		}
		if deleted != 1 {
			t.Errorf("deleted = %d, want 1", deleted)
		}

		left, err := s.FindBySymbol(ctx, "ACME", 0)
		if err != nil {
			t.Fatalf("FindBySymbol failed: %v", err)
		}
		if len(left) != 1 || left[0].Headlines[0].Title != "recent" {
			t.Errorf("unexpected remaining records: %+v", left)
		}

		deleted, err = s.PurgeOlderThan(ctx, baseTime.Add(-30*24*time.Hour))
		if err != nil || deleted != 0 {
			t.Errorf("second purge = %d, %v; want 0, nil", deleted, err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestRepository(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		db := testdb.Setup(t)
		return NewRepository(db.DB())
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	mustAppend(t, s, newRecord("ACME", baseTime, models.SentimentPositive, "original"))

	got, _ := s.FindRecent(context.Background(), "ACME", baseTime)
	got.Headlines[0].Title = "mutated"

	again, _ := s.FindRecent(context.Background(), "ACME", baseTime)
	if again.Headlines[0].Title != "original" {
		t.Errorf("stored record was mutated through returned copy")
	}
}
