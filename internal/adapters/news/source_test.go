package news

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type mockProvider struct {
	name    string
	enabled bool
	titles  []string
	err     error
	calls   int
	limit   int
}

func (m *mockProvider) GetName() string { return m.name }

func (m *mockProvider) IsEnabled() bool { return m.enabled }

func (m *mockProvider) FetchHeadlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	m.calls++
	m.limit = limit
	return m.titles, m.err
}

func TestSource_FirstUsableProviderWins(t *testing.T) {
	failing := &mockProvider{name: "eventregistry", enabled: true, err: errors.New("timeout")}
	empty := &mockProvider{name: "empty", enabled: true, titles: []string{"", "No Title Found"}}
	good := &mockProvider{name: "newsapi", enabled: true, titles: []string{"ACME beats", "ACME misses"}}
	unused := &mockProvider{name: "unused", enabled: true, titles: []string{"never"}}

	src := NewSource([]Provider{failing, empty, good, unused}, 3, true)

	batch, err := src.Fetch(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if batch.Provider != "newsapi" {
		t.Errorf("provider = %s, want newsapi", batch.Provider)
	}
	if got := strings.Join(batch.Titles(), "|"); got != "ACME beats|ACME misses" {
		t.Errorf("titles = %s", got)
	}
	if batch.IsSynthetic() {
		t.Error("real batch marked synthetic")
	}
	if unused.calls != 0 {
		t.Error("providers after the winner should not be called")
	}
	if good.limit != 3 {
		t.Errorf("limit passed = %d, want 3", good.limit)
	}
}

func TestSource_CapsAndDedupes(t *testing.T) {
	p := &mockProvider{name: "p", enabled: true, titles: []string{
		"One", " One ", "Two", "", "Three", "Four",
	}}

	batch, _ := NewSource([]Provider{p}, 3, true).Fetch(context.Background(), "ACME")

	if got := strings.Join(batch.Titles(), "|"); got != "One|Two|Three" {
		t.Errorf("titles = %s, want One|Two|Three", got)
	}
}

func TestSource_SyntheticFallback(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
	}{
		{name: "no providers", providers: nil},
		{name: "provider error", providers: []Provider{&mockProvider{name: "p", enabled: true, err: errors.New("boom")}}},
		{name: "provider empty", providers: []Provider{&mockProvider{name: "p", enabled: true}}},
		{name: "provider disabled", providers: []Provider{&mockProvider{name: "p", enabled: false, titles: []string{"x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := NewSource(tt.providers, 3, true).Fetch(context.Background(), "ZZZZ")
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}

			if len(batch.Articles) != 3 {
				t.Fatalf("got %d articles, want 3", len(batch.Articles))
			}
			if batch.Provider != SyntheticProvider {
				t.Errorf("provider = %s", batch.Provider)
			}
			for _, a := range batch.Articles {
				if !a.Synthetic {
					t.Errorf("article %q not flagged synthetic", a.Title)
				}
				if !strings.Contains(a.Title, "ZZZZ") {
					t.Errorf("article %q does not mention symbol", a.Title)
				}
			}
		})
	}
}

func TestSource_SyntheticDisabled(t *testing.T) {
	p := &mockProvider{name: "p", enabled: true, err: errors.New("boom")}

	batch, err := NewSource([]Provider{p}, 3, false).Fetch(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(batch.Articles) != 0 {
		t.Errorf("expected empty batch, got %d", len(batch.Articles))
	}
}

func TestSyntheticBatch_CyclesTemplates(t *testing.T) {
	batch := SyntheticBatch("ACME", 5)

	want := []string{
		"ACME stock shows strong performance in recent trading",
		"Market analysts review ACME financial outlook",
		"Investors show interest in ACME stock movement",
		"ACME stock shows strong performance in recent trading",
		"Market analysts review ACME financial outlook",
	}

	if len(batch.Articles) != len(want) {
		t.Fatalf("got %d articles, want %d", len(batch.Articles), len(want))
	}
	for i, a := range batch.Articles {
		if a.Title != want[i] {
			t.Errorf("article %d = %q, want %q", i, a.Title, want[i])
		}
	}
}
