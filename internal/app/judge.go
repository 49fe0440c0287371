package app

import (
	"context"
	"fmt"
	"strings"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/geo"
	"geoquiz-service/internal/match"
)

// textVerdict is the outcome of a whitelisted text submission.
type textVerdict struct {
	label   string
	iso3    string // first matched suggestion
	correct bool
}

// judgeText applies the whitelist-first policy: candidates that are not an
// exact suggestion are rejected with ErrNotASuggestion before any grading.
// A match is correct when its ISO3 is the answer or, failing that, when the
// text equals one of the accepted answer strings.
func judgeText(idx *match.Index, candidate, answerISO3 string, answers ...string) (textVerdict, error) {
	label := strings.TrimSpace(candidate)
	hits := idx.Lookup(label)
	if len(hits) == 0 {
		return textVerdict{}, fmt.Errorf("%w: %q", domain.ErrNotASuggestion, label)
	}
	v := textVerdict{label: label, iso3: hits[0].ISO3}
	for _, h := range hits {
		if answerISO3 != "" && h.ISO3 == answerISO3 {
			v.correct, v.iso3 = true, h.ISO3
			return v, nil
		}
	}
	for _, a := range answers {
		if match.Equal(label, a) {
			v.correct = true
			return v, nil
		}
	}
	return v, nil
}

// distanceTo resolves iso3 and returns the rounded distance to target.
// Any failure degrades to nil.
func distanceTo(ctx context.Context, catalog *Catalog, rawLocale, iso3 string, target *geo.LatLng) *int {
	if target == nil || iso3 == "" {
		return nil
	}
	lite, err := catalog.Resolve(ctx, ResolveQuery{Locale: rawLocale, ISO3: iso3})
	if err != nil || lite.LatLng == nil {
		return nil
	}
	km := geo.HaversineKm(*lite.LatLng, *target)
	return &km
}
