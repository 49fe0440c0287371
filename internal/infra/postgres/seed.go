package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/dataset"
)

const upsertCountry = `INSERT INTO countries (iso3, data) VALUES ($1, $2::jsonb)
ON CONFLICT (iso3) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

// Seed upserts every decodable record of a dataset document and returns how
// many rows were written. Records are stored raw; normalization happens on load.
func Seed(ctx context.Context, pool *pgxpool.Pool, data []byte, logger zerolog.Logger) (int, error) {
	records, err := dataset.SplitRecords(data)
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		c, err := dataset.DecodeRecord(rec.Raw, rec.Key)
		if err != nil {
			logger.Warn().Err(err).Str("key", rec.Key).Msg("not seeding country record")
			continue
		}
		batch.Queue(upsertCountry, c.ISO3, string(rec.Raw))
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("seed country: %w", err)
		}
	}
	return batch.Len(), nil
}
