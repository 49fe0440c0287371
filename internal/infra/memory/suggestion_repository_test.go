package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

func TestSuggestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{}
	repo := NewSuggestionRepository(loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		names, err := repo.Names(ctx, locale.Normalize("fr"))
		if err != nil {
			t.Fatalf("names: %v", err)
		}
		if len(names) != 1 || names[0].Name != "France (fr)" {
			t.Fatalf("unexpected names %+v", names)
		}
	}
	if got := loader.names.Load(); got != 1 {
		t.Fatalf("expected loader once, got %d", got)
	}

	if _, err := repo.Names(ctx, locale.Normalize("de")); err != nil {
		t.Fatalf("names de: %v", err)
	}
	if got := loader.names.Load(); got != 2 {
		t.Fatalf("expected a separate fill per locale, got %d", got)
	}

	for i := 0; i < 3; i++ {
		if _, err := repo.Capitals(ctx); err != nil {
			t.Fatalf("capitals: %v", err)
		}
	}
	if got := loader.capitals.Load(); got != 1 {
		t.Fatalf("expected capitals loaded once, got %d", got)
	}
}

func TestSuggestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{}
	repo := NewSuggestionRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }
	ctx := context.Background()

	if _, err := repo.Capitals(ctx); err != nil {
		t.Fatalf("capitals: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.Capitals(ctx); err != nil {
		t.Fatalf("capitals after expiry: %v", err)
	}
	if got := loader.capitals.Load(); got != 2 {
		t.Fatalf("expected reload after ttl, got %d", got)
	}

	repo.Invalidate()
	if _, err := repo.Capitals(ctx); err != nil {
		t.Fatalf("capitals after invalidate: %v", err)
	}
	if got := loader.capitals.Load(); got != 3 {
		t.Fatalf("expected reload after invalidate, got %d", got)
	}
}

func TestSuggestionRepositoryCoalescesFills(t *testing.T) {
	loader := &countingLoader{delay: 20 * time.Millisecond}
	repo := NewSuggestionRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Names(context.Background(), locale.Normalize("en")); err != nil {
				t.Errorf("names: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := loader.names.Load(); got != 1 {
		t.Fatalf("expected concurrent fills coalesced, got %d loads", got)
	}
}

type countingLoader struct {
	delay    time.Duration
	names    atomic.Int32
	capitals atomic.Int32
}

func (l *countingLoader) Names(_ context.Context, loc locale.Locale) ([]domain.NameSuggestion, error) {
	l.names.Add(1)
	time.Sleep(l.delay)
	return []domain.NameSuggestion{{ISO3: "FRA", Name: "France (" + loc.Base + ")"}}, nil
}

func (l *countingLoader) Capitals(context.Context) ([]domain.CapitalSuggestion, error) {
	l.capitals.Add(1)
	return []domain.CapitalSuggestion{{ISO3: "FRA", Capital: "Paris"}}, nil
}
