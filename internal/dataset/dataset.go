// Package dataset loads the static country collection and normalizes raw
// records into domain.Country at the boundary.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/biter777/countries"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/domain"
)

// Dataset is the read-only country collection. It is safe for concurrent use.
type Dataset struct {
	all    []domain.Country
	byISO3 map[string]int
}

// New indexes countries by ISO3. Duplicate codes are rejected.
func New(list []domain.Country) (*Dataset, error) {
	all := make([]domain.Country, len(list))
	copy(all, list)
	sort.Slice(all, func(i, j int) bool { return all[i].ISO3 < all[j].ISO3 })

	byISO3 := make(map[string]int, len(all))
	for i, c := range all {
		if _, dup := byISO3[c.ISO3]; dup {
			return nil, fmt.Errorf("%w: duplicate iso3 %s", domain.ErrInvalidInput, c.ISO3)
		}
		byISO3[c.ISO3] = i
	}
	return &Dataset{all: all, byISO3: byISO3}, nil
}

// ByISO3 looks a country up case-insensitively.
func (d *Dataset) ByISO3(iso3 string) (domain.Country, bool) {
	i, ok := d.byISO3[strings.ToUpper(strings.TrimSpace(iso3))]
	if !ok {
		return domain.Country{}, false
	}
	return d.all[i], true
}

// All returns every country ordered by ISO3. Callers must not modify it.
func (d *Dataset) All() []domain.Country { return d.all }

func (d *Dataset) Len() int { return len(d.all) }

// Check reports an error when the dataset is empty; used by health checks.
func (d *Dataset) Check(context.Context) error {
	if d == nil || len(d.all) == 0 {
		return errors.New("dataset is empty")
	}
	return nil
}

// Describe summarises the dataset for health reports.
func (d *Dataset) Describe() string {
	withShape := 0
	for _, c := range d.all {
		if c.HasShape() {
			withShape++
		}
	}
	return fmt.Sprintf("%d countries (%d with outlines)", len(d.all), withShape)
}

// Record is one undecoded dataset entry. Key is the object key when the
// document is keyed by ISO3, empty for arrays.
type Record struct {
	Key string
	Raw json.RawMessage
}

// SplitRecords splits a dataset document, either an array of records or an
// object keyed by ISO3, without decoding the records.
func SplitRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", domain.ErrInvalidInput)
	}

	var records []Record
	switch data[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode dataset: %w", err)
		}
		for _, raw := range list {
			records = append(records, Record{Raw: raw})
		}
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode dataset: %w", err)
		}
		for key, raw := range m {
			records = append(records, Record{Key: key, Raw: raw})
		}
	default:
		return nil, fmt.Errorf("%w: dataset must be a JSON array or object", domain.ErrInvalidInput)
	}
	return records, nil
}

// Decode reads a dataset document. Invalid records are skipped and logged.
func Decode(data []byte, logger zerolog.Logger) ([]domain.Country, error) {
	records, err := SplitRecords(data)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Country, 0, len(records))
	for _, rec := range records {
		c, err := DecodeRecord(rec.Raw, rec.Key)
		if err != nil {
			logger.Warn().Err(err).Str("key", rec.Key).Msg("skipping country record")
			continue
		}
		out = append(out, Enrich(c, logger))
	}
	return out, nil
}

// Enrich checks the ISO3 code against ISO 3166-1 and backfills a missing ISO2.
// Codes outside the standard (e.g. user-assigned ones) are kept.
func Enrich(c domain.Country, logger zerolog.Logger) domain.Country {
	alpha2, ok := isoAlpha2()[c.ISO3]
	if !ok {
		logger.Debug().Str("iso3", c.ISO3).Msg("iso3 not in ISO 3166-1")
		return c
	}
	if c.ISO2 == "" {
		c.ISO2 = alpha2
	}
	return c
}

var isoAlpha2 = sync.OnceValue(func() map[string]string {
	all := countries.All()
	m := make(map[string]string, len(all))
	for _, code := range all {
		if a3, a2 := code.Alpha3(), code.Alpha2(); len(a3) == 3 && len(a2) == 2 {
			m[a3] = a2
		}
	}
	return m
})

// Load decodes data and builds a Dataset.
func Load(data []byte, logger zerolog.Logger) (*Dataset, error) {
	list, err := Decode(data, logger)
	if err != nil {
		return nil, err
	}
	return New(list)
}

// LoadFile reads a dataset document from disk.
func LoadFile(path string, logger zerolog.Logger) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Load(data, logger)
}
