package app

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

// SuggestionBuilder computes suggestion lists straight from the dataset. It is
// the loader behind the cached repositories.
type SuggestionBuilder struct {
	ds *dataset.Dataset
}

func NewSuggestionBuilder(ds *dataset.Dataset) *SuggestionBuilder {
	return &SuggestionBuilder{ds: ds}
}

// Names returns one localized entry per country, deduplicated by (name, iso3).
func (b *SuggestionBuilder) Names(_ context.Context, loc locale.Locale) ([]domain.NameSuggestion, error) {
	seen := make(map[string]struct{}, b.ds.Len())
	out := make([]domain.NameSuggestion, 0, b.ds.Len())
	for _, c := range b.ds.All() {
		s := domain.NameSuggestion{ISO3: c.ISO3, Name: LocalizedName(c, loc)}
		key := s.Name + "|" + s.ISO3
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	SortNames(loc, out)
	return out, nil
}

// Capitals lists usable capitals, deduplicated by (capital, iso3).
func (b *SuggestionBuilder) Capitals(_ context.Context) ([]domain.CapitalSuggestion, error) {
	seen := make(map[string]struct{}, b.ds.Len())
	out := make([]domain.CapitalSuggestion, 0, b.ds.Len())
	for _, c := range b.ds.All() {
		if !c.HasUsableCapital() {
			continue
		}
		s := domain.CapitalSuggestion{ISO3: c.ISO3, Capital: strings.TrimSpace(c.Capital)}
		key := s.Capital + "|" + s.ISO3
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	SortCapitals(out)
	return out, nil
}

// SortNames orders names with the locale's collation, ISO3 breaking ties.
func SortNames(loc locale.Locale, names []domain.NameSuggestion) {
	col := collate.New(loc.Tag())
	sort.SliceStable(names, func(i, j int) bool {
		if c := col.CompareString(names[i].Name, names[j].Name); c != 0 {
			return c < 0
		}
		return names[i].ISO3 < names[j].ISO3
	})
}

// SortCapitals orders capitals with English collation.
func SortCapitals(caps []domain.CapitalSuggestion) {
	col := collate.New(language.English)
	sort.SliceStable(caps, func(i, j int) bool {
		if c := col.CompareString(caps[i].Capital, caps[j].Capital); c != 0 {
			return c < 0
		}
		return caps[i].ISO3 < caps[j].ISO3
	})
}
