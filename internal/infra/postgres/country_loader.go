package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/domain"
)

// CountryLoader loads country JSONB records from Postgres.
type CountryLoader struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewCountryLoader(pool *pgxpool.Pool, logger zerolog.Logger) *CountryLoader {
	return &CountryLoader{pool: pool, logger: logger}
}

// LoadCountries reads every row through the same normalizer as the file
// loader. Rows that fail to decode are skipped.
func (l *CountryLoader) LoadCountries(ctx context.Context) ([]domain.Country, error) {
	rows, err := l.pool.Query(ctx, `SELECT iso3, data FROM countries ORDER BY iso3`)
	if err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	defer rows.Close()

	var out []domain.Country
	for rows.Next() {
		var (
			iso3 string
			raw  []byte
		)
		if err := rows.Scan(&iso3, &raw); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c, err := dataset.DecodeRecord(raw, iso3)
		if err != nil {
			l.logger.Warn().Err(err).Str("iso3", iso3).Msg("skipping country row")
			continue
		}
		out = append(out, dataset.Enrich(c, l.logger))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate countries: %w", err)
	}
	return out, nil
}

// LoadDataset builds a Dataset from the table.
func (l *CountryLoader) LoadDataset(ctx context.Context) (*dataset.Dataset, error) {
	list, err := l.LoadCountries(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: countries table is empty", domain.ErrUnavailable)
	}
	return dataset.New(list)
}

// Check pings the pool.
func (l *CountryLoader) Check(ctx context.Context) error {
	return l.pool.Ping(ctx)
}
