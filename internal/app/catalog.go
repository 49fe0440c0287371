package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"geoquiz-service/internal/cache"
	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
	"geoquiz-service/internal/match"
)

// SuggestionRepository serves the per-locale autocomplete lists (cached or computed).
type SuggestionRepository interface {
	Names(ctx context.Context, loc locale.Locale) ([]domain.NameSuggestion, error)
	Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error)
}

// ResolutionMemo stores successful resolutions keyed by locale and query.
type ResolutionMemo interface {
	Get(ctx context.Context, key string) (domain.CountryLite, bool)
	Put(ctx context.Context, key string, lite domain.CountryLite)
}

// ResolveQuery selects a country by ISO3 or by free-text name. ISO3 wins when both are set.
type ResolveQuery struct {
	Locale string
	ISO3   string
	Name   string
}

// Catalog answers read-only questions about the dataset: resolution,
// localization and suggestion lists.
type Catalog struct {
	ds          *dataset.Dataset
	suggestions SuggestionRepository
	memo        ResolutionMemo
	indexes     *cache.Bounded[string, *match.Index]
	logger      zerolog.Logger
}

// NewCatalog wires a catalog. A nil repository computes lists on every call;
// a nil memo falls back to an in-process bounded cache.
func NewCatalog(ds *dataset.Dataset, suggestions SuggestionRepository, memo ResolutionMemo, logger zerolog.Logger) *Catalog {
	if suggestions == nil {
		suggestions = NewSuggestionBuilder(ds)
	}
	if memo == nil {
		memo = NewBoundedMemo(512)
	}
	return &Catalog{
		ds:          ds,
		suggestions: suggestions,
		memo:        memo,
		indexes:     cache.NewBounded[string, *match.Index](64),
		logger:      logger,
	}
}

func (c *Catalog) Dataset() *dataset.Dataset { return c.ds }

// Resolve maps a query to a CountryLite. Errors: ErrInvalidInput, ErrNotFound,
// *domain.AmbiguousError.
func (c *Catalog) Resolve(ctx context.Context, q ResolveQuery) (domain.CountryLite, error) {
	loc := locale.Normalize(q.Locale)
	iso3 := strings.ToUpper(strings.TrimSpace(q.ISO3))
	name := strings.TrimSpace(q.Name)
	if iso3 == "" && name == "" {
		return domain.CountryLite{}, fmt.Errorf("%w: iso3 or name is required", domain.ErrInvalidInput)
	}

	var key string
	if iso3 != "" {
		key = loc.Base + "|iso3:" + iso3
	} else {
		key = loc.Base + "|name:" + match.Normalize(name)
	}
	if lite, ok := c.memo.Get(ctx, key); ok {
		return lite, nil
	}

	var (
		country domain.Country
		err     error
	)
	if iso3 != "" {
		var ok bool
		if country, ok = c.ds.ByISO3(iso3); !ok {
			return domain.CountryLite{}, fmt.Errorf("%w: %s", domain.ErrNotFound, iso3)
		}
	} else if country, err = c.findByName(name, loc); err != nil {
		return domain.CountryLite{}, err
	}

	lite := Project(country, loc)
	c.memo.Put(ctx, key, lite)
	return lite, nil
}

type nameTier func(domain.Country, locale.Locale) []string

var resolveTiers = []nameTier{
	func(c domain.Country, _ locale.Locale) []string { return []string{c.Name.Common} },
	func(c domain.Country, loc locale.Locale) []string { return []string{LocalizedName(c, loc)} },
	func(c domain.Country, _ locale.Locale) []string { return []string{c.Name.Official} },
	func(c domain.Country, _ locale.Locale) []string { return translationNames(c) },
}

// findByName walks the tiers in order and stops at the first non-empty one.
func (c *Catalog) findByName(name string, loc locale.Locale) (domain.Country, error) {
	q := match.Normalize(name)
	if q == "" {
		return domain.Country{}, fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}

	for tier, names := range resolveTiers {
		var hits []domain.Country
		for _, country := range c.ds.All() {
			if anyEqual(q, names(country, loc)) {
				hits = append(hits, country)
			}
		}
		switch {
		case len(hits) == 1:
			return hits[0], nil
		case len(hits) > 1:
			return domain.Country{}, &domain.AmbiguousError{
				Name:       name,
				Candidates: c.candidates(q, loc, tier == len(resolveTiers)-1),
			}
		}
	}
	return domain.Country{}, fmt.Errorf("%w: %q", domain.ErrNotFound, name)
}

// candidates lists every ISO3 whose common, official or localized name matches q;
// withTranslations widens this to any translation.
func (c *Catalog) candidates(q string, loc locale.Locale, withTranslations bool) []string {
	var out []string
	for _, country := range c.ds.All() {
		names := []string{country.Name.Common, country.Name.Official, LocalizedName(country, loc)}
		if withTranslations {
			names = append(names, translationNames(country)...)
		}
		if anyEqual(q, names) {
			out = append(out, country.ISO3)
		}
	}
	sort.Strings(out)
	return out
}

func anyEqual(normalized string, names []string) bool {
	for _, n := range names {
		if n != "" && match.Normalize(n) == normalized {
			return true
		}
	}
	return false
}

func translationNames(c domain.Country) []string {
	out := make([]string, 0, 2*len(c.Translations))
	for _, t := range c.Translations {
		out = append(out, t.Common, t.Official)
	}
	return out
}

// LocalizedName follows translations[key], then translations[base], then the common name.
func LocalizedName(c domain.Country, loc locale.Locale) string {
	if t, ok := c.Translations[loc.Key]; ok {
		if s := t.Best(); s != "" {
			return s
		}
	}
	if t, ok := c.Translations[loc.Base]; ok {
		if s := t.Best(); s != "" {
			return s
		}
	}
	return c.Name.Common
}

// Project builds the lightweight view of a country. Placeholder capitals become null.
func Project(c domain.Country, loc locale.Locale) domain.CountryLite {
	lite := domain.CountryLite{
		ISO3:          c.ISO3,
		NameEN:        c.Name.Common,
		NameLocalized: LocalizedName(c, loc),
		LatLng:        c.LatLng,
	}
	if c.HasUsableCapital() {
		capital := strings.TrimSpace(c.Capital)
		lite.Capital = &capital
	}
	if c.Region != "" {
		region := c.Region
		lite.Region = &region
	}
	return lite
}

// Names returns the localized name suggestions for a locale tag.
func (c *Catalog) Names(ctx context.Context, rawLocale string) ([]domain.NameSuggestion, error) {
	return c.suggestions.Names(ctx, locale.Normalize(rawLocale))
}

// Capitals returns the deduplicated capital suggestions.
func (c *Catalog) Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error) {
	return c.suggestions.Capitals(ctx)
}

// NameIndex returns the answer whitelist for a locale, built from Names.
func (c *Catalog) NameIndex(ctx context.Context, loc locale.Locale) (*match.Index, error) {
	key := "names:" + loc.Base
	if idx, ok := c.indexes.Get(key); ok {
		return idx, nil
	}
	names, err := c.suggestions.Names(ctx, loc)
	if err != nil {
		return nil, err
	}
	entries := make([]match.Entry, 0, len(names))
	for _, s := range names {
		entries = append(entries, match.Entry{ISO3: s.ISO3, Label: s.Name})
	}
	idx := match.NewIndex(entries)
	c.indexes.Put(key, idx)
	return idx, nil
}

// CapitalIndex returns the capital whitelist.
func (c *Catalog) CapitalIndex(ctx context.Context) (*match.Index, error) {
	const key = "capitals"
	if idx, ok := c.indexes.Get(key); ok {
		return idx, nil
	}
	caps, err := c.suggestions.Capitals(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]match.Entry, 0, len(caps))
	for _, s := range caps {
		entries = append(entries, match.Entry{ISO3: s.ISO3, Label: s.Capital})
	}
	idx := match.NewIndex(entries)
	c.indexes.Put(key, idx)
	return idx, nil
}

// BoundedMemo is the in-process ResolutionMemo.
type BoundedMemo struct {
	entries *cache.Bounded[string, domain.CountryLite]
}

func NewBoundedMemo(maxEntries int) *BoundedMemo {
	return &BoundedMemo{entries: cache.NewBounded[string, domain.CountryLite](maxEntries)}
}

func (m *BoundedMemo) Get(_ context.Context, key string) (domain.CountryLite, bool) {
	return m.entries.Get(key)
}

func (m *BoundedMemo) Put(_ context.Context, key string, lite domain.CountryLite) {
	m.entries.Put(key, lite)
}
