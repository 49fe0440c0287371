package memory

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

// SuggestionLoader computes suggestion lists from the dataset.
type SuggestionLoader interface {
	Names(ctx context.Context, loc locale.Locale) ([]domain.NameSuggestion, error)
	Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error)
}

// SuggestionRepository caches suggestion lists with TTL so each locale is
// collated once per expiry.
type SuggestionRepository struct {
	loader SuggestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedList
}

type cachedList struct {
	names     []domain.NameSuggestion
	capitals  []domain.CapitalSuggestion
	expiresAt time.Time
}

// NewSuggestionRepository wraps loader. A non-positive ttl caches forever.
func NewSuggestionRepository(loader SuggestionLoader, ttl time.Duration) *SuggestionRepository {
	return &SuggestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedList),
	}
}

func (r *SuggestionRepository) Names(ctx context.Context, loc locale.Locale) ([]domain.NameSuggestion, error) {
	entry, err := r.get(ctx, "names:"+loc.Base, func(ctx context.Context) (cachedList, error) {
		names, err := r.loader.Names(ctx, loc)
		return cachedList{names: names}, err
	})
	if err != nil {
		return nil, err
	}
	return entry.names, nil
}

func (r *SuggestionRepository) Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error) {
	entry, err := r.get(ctx, "capitals", func(ctx context.Context) (cachedList, error) {
		caps, err := r.loader.Capitals(ctx)
		return cachedList{capitals: caps}, err
	})
	if err != nil {
		return nil, err
	}
	return entry.capitals, nil
}

// Invalidate drops every cached list.
func (r *SuggestionRepository) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[string]cachedList)
	r.mu.Unlock()
}

func (r *SuggestionRepository) get(ctx context.Context, key string, load func(context.Context) (cachedList, error)) (cachedList, error) {
	if entry, ok := r.lookup(key); ok {
		return entry, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if entry, ok := r.lookup(key); ok {
			return entry, nil
		}
		entry, err := load(ctx)
		if err != nil {
			return cachedList{}, err
		}
		entry.expiresAt = r.clock().Add(r.ttlWithJitter())

		r.mu.Lock()
		r.cache[key] = entry
		r.mu.Unlock()
		return entry, nil
	})
	if err != nil {
		return cachedList{}, err
	}
	return result.(cachedList), nil
}

func (r *SuggestionRepository) lookup(key string) (cachedList, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || (r.ttl > 0 && !entry.expiresAt.After(r.clock())) {
		return cachedList{}, false
	}
	return entry, true
}

func (r *SuggestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int64N(jitterMax+1))
}
