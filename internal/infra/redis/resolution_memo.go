package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/domain"
)

// ResolutionMemo shares resolved countries across instances.
// Entries are stored as: SET geo:resolve:{locale}|{query} {json} EX ttl
type ResolutionMemo struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewResolutionMemo(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ResolutionMemo {
	return &ResolutionMemo{client: client, ttl: ttl, logger: logger}
}

func (m *ResolutionMemo) Get(ctx context.Context, key string) (domain.CountryLite, bool) {
	raw, err := m.client.Get(ctx, m.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.logger.Debug().Err(err).Str("key", key).Msg("resolution memo read")
		}
		return domain.CountryLite{}, false
	}
	var lite domain.CountryLite
	if err := json.Unmarshal(raw, &lite); err != nil {
		return domain.CountryLite{}, false
	}
	return lite, true
}

// Put is best-effort.
func (m *ResolutionMemo) Put(ctx context.Context, key string, lite domain.CountryLite) {
	raw, err := json.Marshal(lite)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, m.key(key), raw, m.ttl).Err(); err != nil {
		m.logger.Debug().Err(err).Str("key", key).Msg("resolution memo write")
	}
}

func (m *ResolutionMemo) key(key string) string {
	return "geo:resolve:" + key
}
