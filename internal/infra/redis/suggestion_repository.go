package redis

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

// SuggestionLoader computes suggestion lists from the dataset.
type SuggestionLoader interface {
	Names(ctx context.Context, loc locale.Locale) ([]domain.NameSuggestion, error)
	Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error)
}

// SuggestionRepository caches suggestion lists in Redis (hash per list) and
// falls back to a loader on cache miss.
// Names are stored as:    HSET geo:names:{locale} {iso3} {name}
// Capitals are stored as: HSET geo:capitals {iso3} {capital}
// Hashes are unordered, so lists are re-collated on read.
type SuggestionRepository struct {
	client *redis.Client
	loader SuggestionLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewSuggestionRepository(client *redis.Client, loader SuggestionLoader, ttl time.Duration) *SuggestionRepository {
	return &SuggestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *SuggestionRepository) Names(ctx context.Context, loc locale.Locale) ([]domain.NameSuggestion, error) {
	key := namesKey(loc)
	if cached, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
		return namesFromHash(loc, cached), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
			return namesFromHash(loc, cached), nil
		}
		names, err := r.loader.Names(ctx, loc)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]interface{}, len(names))
		for _, n := range names {
			fields[n.ISO3] = n.Name
		}
		r.fill(ctx, key, fields)
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.NameSuggestion), nil
}

func (r *SuggestionRepository) Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error) {
	const key = "geo:capitals"
	if cached, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
		return capitalsFromHash(cached), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if cached, err := r.client.HGetAll(ctx, key).Result(); err == nil && len(cached) > 0 {
			return capitalsFromHash(cached), nil
		}
		caps, err := r.loader.Capitals(ctx)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]interface{}, len(caps))
		for _, c := range caps {
			fields[c.ISO3] = c.Capital
		}
		r.fill(ctx, key, fields)
		return caps, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CapitalSuggestion), nil
}

// fill writes a hash with TTL. Failures only cost a cache miss next time.
func (r *SuggestionRepository) fill(ctx context.Context, key string, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func namesKey(loc locale.Locale) string {
	return "geo:names:" + loc.Base
}

func namesFromHash(loc locale.Locale, hash map[string]string) []domain.NameSuggestion {
	out := make([]domain.NameSuggestion, 0, len(hash))
	for iso3, name := range hash {
		out = append(out, domain.NameSuggestion{ISO3: iso3, Name: name})
	}
	app.SortNames(loc, out)
	return out
}

func capitalsFromHash(hash map[string]string) []domain.CapitalSuggestion {
	out := make([]domain.CapitalSuggestion, 0, len(hash))
	for iso3, capital := range hash {
		out = append(out, domain.CapitalSuggestion{ISO3: iso3, Capital: capital})
	}
	app.SortCapitals(out)
	return out
}

func (r *SuggestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int64N(jitterMax+1))
}
