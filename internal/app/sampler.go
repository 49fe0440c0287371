package app

import (
	"context"
	"fmt"
	"strings"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

// eligible reports whether a country can be asked in a mode.
var eligible = map[domain.Mode]func(domain.Country) bool{
	domain.ModeFlag:    func(c domain.Country) bool { return c.HasFlag() && c.Independent },
	domain.ModeCapital: domain.Country.HasUsableCapital,
	domain.ModeShape:   domain.Country.HasShape,
}

// hasDatum is the weaker check used when a specific country is requested.
var hasDatum = map[domain.Mode]func(domain.Country) bool{
	domain.ModeFlag:    domain.Country.HasFlag,
	domain.ModeCapital: domain.Country.HasUsableCapital,
	domain.ModeShape:   domain.Country.HasShape,
}

// Sampler draws single-mode questions. Pools are computed once.
type Sampler struct {
	catalog *Catalog
	rnd     Random
	pools   map[domain.Mode][]domain.Country
}

func NewSampler(catalog *Catalog, rnd Random) *Sampler {
	if rnd == nil {
		rnd = DefaultRandom()
	}
	pools := make(map[domain.Mode][]domain.Country, len(eligible))
	for mode, ok := range eligible {
		for _, c := range catalog.Dataset().All() {
			if ok(c) {
				pools[mode] = append(pools[mode], c)
			}
		}
	}
	return &Sampler{catalog: catalog, rnd: rnd, pools: pools}
}

// PoolSize returns how many countries are eligible for mode.
func (s *Sampler) PoolSize(mode domain.Mode) int { return len(s.pools[mode]) }

// Sample draws a uniformly random question for mode.
func (s *Sampler) Sample(_ context.Context, mode domain.Mode, rawLocale string) (domain.RandomQuestion, error) {
	if _, ok := eligible[mode]; !ok {
		return domain.RandomQuestion{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	pool := s.pools[mode]
	if len(pool) == 0 {
		return domain.RandomQuestion{}, fmt.Errorf("%w: no country eligible for %s", domain.ErrUnavailable, mode)
	}
	return questionFor(pick(s.rnd, pool), mode, locale.Normalize(rawLocale)), nil
}

// ForCountry builds the question for a given country.
func (s *Sampler) ForCountry(_ context.Context, mode domain.Mode, iso3, rawLocale string) (domain.RandomQuestion, error) {
	has, ok := hasDatum[mode]
	if !ok {
		return domain.RandomQuestion{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	c, found := s.catalog.Dataset().ByISO3(iso3)
	if !found {
		return domain.RandomQuestion{}, fmt.Errorf("%w: %s", domain.ErrNotFound, iso3)
	}
	if !has(c) {
		return domain.RandomQuestion{}, fmt.Errorf("%w: %s has no %s", domain.ErrNotFound, c.ISO3, mode)
	}
	return questionFor(c, mode, locale.Normalize(rawLocale)), nil
}

func questionFor(c domain.Country, mode domain.Mode, loc locale.Locale) domain.RandomQuestion {
	var data any
	switch mode {
	case domain.ModeFlag:
		data = c.FlagSVG
	case domain.ModeCapital:
		data = strings.TrimSpace(c.Capital)
	case domain.ModeShape:
		data = c.Shape
	}
	return domain.RandomQuestion{
		ISO3:            c.ISO3,
		Question:        domain.Question{Type: mode, Data: data},
		Options:         []string{},
		Answer:          c.Name.Common,
		LocalizedAnswer: LocalizedName(c, loc),
	}
}
