package app_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

func TestResolveByISO3(t *testing.T) {
	catalog := app.NewCatalog(embeddedDataset(t), nil, nil, zerolog.Nop())
	ctx := context.Background()

	lite, err := catalog.Resolve(ctx, app.ResolveQuery{Locale: "fr-FR", ISO3: " fra "})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lite.ISO3 != "FRA" || lite.NameEN != "France" || lite.NameLocalized != "France" {
		t.Fatalf("unexpected projection %+v", lite)
	}
	if lite.Capital == nil || *lite.Capital != "Paris" || lite.Region == nil || *lite.Region != "Europe" || lite.LatLng == nil {
		t.Fatalf("expected capital, region and coordinates, got %+v", lite)
	}

	de, err := catalog.Resolve(ctx, app.ResolveQuery{Locale: "de", ISO3: "DEU", Name: "France"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if de.ISO3 != "DEU" || de.NameLocalized != "Deutschland" {
		t.Fatalf("expected iso3 to win over name, got %+v", de)
	}

	ata, err := catalog.Resolve(ctx, app.ResolveQuery{ISO3: "ATA"})
	if err != nil {
		t.Fatalf("resolve ATA: %v", err)
	}
	if ata.Capital != nil {
		t.Fatalf("expected placeholder capital to project to null, got %q", *ata.Capital)
	}

	if _, err := catalog.Resolve(ctx, app.ResolveQuery{ISO3: "XXX"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := catalog.Resolve(ctx, app.ResolveQuery{Locale: "en"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveByNameTiers(t *testing.T) {
	catalog := app.NewCatalog(embeddedDataset(t), nil, nil, zerolog.Nop())

	cases := []struct {
		name   string
		locale string
		query  string
		want   string
	}{
		{name: "common", locale: "en", query: "Ivory Coast", want: "CIV"},
		{name: "common ignores case and spacing", locale: "en", query: "  united   KINGDOM ", want: "GBR"},
		{name: "localized", locale: "fr", query: "Côte d'Ivoire", want: "CIV"},
		{name: "localized without accents", locale: "fr", query: "etats-unis", want: "USA"},
		{name: "official", locale: "en", query: "French Republic", want: "FRA"},
		{name: "any translation", locale: "en", query: "Allemagne", want: "DEU"},
		{name: "unsupported locale falls back", locale: "xx-YY", query: "Japan", want: "JPN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lite, err := catalog.Resolve(context.Background(), app.ResolveQuery{Locale: tc.locale, Name: tc.query})
			if err != nil {
				t.Fatalf("resolve %q: %v", tc.query, err)
			}
			if lite.ISO3 != tc.want {
				t.Fatalf("resolve %q: expected %s, got %s", tc.query, tc.want, lite.ISO3)
			}
		})
	}

	if _, err := catalog.Resolve(context.Background(), app.ResolveQuery{Name: "Atlantis"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	ds := newDataset(t,
		domain.Country{
			ISO3:         "COG",
			Name:         domain.CountryName{Common: "Republic of the Congo"},
			Translations: map[string]domain.Translation{"fra": {Common: "Congo"}},
		},
		domain.Country{
			ISO3:         "COD",
			Name:         domain.CountryName{Common: "DR Congo"},
			Translations: map[string]domain.Translation{"ita": {Common: "Congo"}},
		},
		domain.Country{ISO3: "GEO", Name: domain.CountryName{Common: "Georgia"}},
		domain.Country{ISO3: "XGA", Name: domain.CountryName{Common: "Georgia", Official: "State of Georgia"}},
	)
	catalog := app.NewCatalog(ds, nil, nil, zerolog.Nop())

	cases := []struct {
		query string
		want  []string
	}{
		{query: "Georgia", want: []string{"GEO", "XGA"}},
		{query: "congo", want: []string{"COD", "COG"}},
	}
	for _, tc := range cases {
		_, err := catalog.Resolve(context.Background(), app.ResolveQuery{Locale: "en", Name: tc.query})
		var amb *domain.AmbiguousError
		if !errors.As(err, &amb) {
			t.Fatalf("%q: expected AmbiguousError, got %v", tc.query, err)
		}
		if !errors.Is(err, domain.ErrAmbiguous) {
			t.Fatalf("%q: expected error to wrap ErrAmbiguous", tc.query)
		}
		if !reflect.DeepEqual(amb.Candidates, tc.want) {
			t.Fatalf("%q: expected candidates %v, got %v", tc.query, tc.want, amb.Candidates)
		}
	}

	// Localized tier resolves before the ambiguous translation tier.
	lite, err := catalog.Resolve(context.Background(), app.ResolveQuery{Locale: "fr", Name: "Congo"})
	if err != nil {
		t.Fatalf("resolve fr: %v", err)
	}
	if lite.ISO3 != "COG" {
		t.Fatalf("expected COG for fr, got %s", lite.ISO3)
	}
}

func TestResolveIsTotal(t *testing.T) {
	ds := embeddedDataset(t)
	catalog := app.NewCatalog(ds, nil, nil, zerolog.Nop())
	for _, c := range ds.All() {
		for _, loc := range []string{"en", "fr", "de", "ja"} {
			lite, err := catalog.Resolve(context.Background(), app.ResolveQuery{Locale: loc, ISO3: c.ISO3})
			if err != nil {
				t.Fatalf("resolve %s/%s: %v", c.ISO3, loc, err)
			}
			if lite.NameLocalized == "" || lite.NameEN != c.Name.Common {
				t.Fatalf("resolve %s/%s: unexpected names %+v", c.ISO3, loc, lite)
			}
		}
	}
}

func TestResolveMemoizes(t *testing.T) {
	memo := &countingMemo{entries: map[string]domain.CountryLite{}}
	catalog := app.NewCatalog(embeddedDataset(t), nil, memo, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := catalog.Resolve(ctx, app.ResolveQuery{Locale: "fr-CA", Name: " Allemagne "}); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if memo.puts != 1 || memo.hits != 2 {
		t.Fatalf("expected one fill and two hits, got puts=%d hits=%d", memo.puts, memo.hits)
	}
	if _, ok := memo.entries["fr|name:allemagne"]; !ok {
		t.Fatalf("expected key by locale base and normalized name, got %v", memo.entries)
	}

	if _, err := catalog.Resolve(ctx, app.ResolveQuery{Name: "Atlantis"}); err == nil {
		t.Fatalf("expected not found")
	}
	if memo.puts != 1 {
		t.Fatalf("failed resolutions must not be memoized")
	}
}

func TestLocalizedNameChain(t *testing.T) {
	c := domain.Country{
		ISO3: "XYZ",
		Name: domain.CountryName{Common: "Xyz"},
		Translations: map[string]domain.Translation{
			"fra": {Common: " ", Official: "Xyz officiel"},
			"es":  {Common: "Xyz es"},
		},
	}
	cases := map[string]string{
		"fr": "Xyz officiel",
		"es": "Xyz es",
		"de": "Xyz",
	}
	for raw, want := range cases {
		if got := app.LocalizedName(c, locale.Normalize(raw)); got != want {
			t.Fatalf("%s: expected %q, got %q", raw, want, got)
		}
	}
}

type countingMemo struct {
	mu      sync.Mutex
	entries map[string]domain.CountryLite
	puts    int
	hits    int
}

func (m *countingMemo) Get(_ context.Context, key string) (domain.CountryLite, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lite, ok := m.entries[key]
	if ok {
		m.hits++
	}
	return lite, ok
}

func (m *countingMemo) Put(_ context.Context, key string, lite domain.CountryLite) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.entries[key] = lite
}
