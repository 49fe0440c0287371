package match

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Côte d'Ivoire":             "cote d'ivoire",
		" São  Tomé\tand Príncipe ": "sao tome and principe",
		"ÅLAND":                     "aland",
		"":                          "",
		"   ":                       "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
		if again := Normalize(Normalize(in)); again != Normalize(in) {
			t.Fatalf("Normalize not idempotent for %q", in)
		}
	}
}

func TestEqualIgnoresBlank(t *testing.T) {
	if Equal("", "  ") {
		t.Fatalf("blank strings must not match")
	}
	if !Equal("Cote d'Ivoire", "côte  d'ivoire") {
		t.Fatalf("expected diacritic-insensitive match")
	}
}

func TestWithinTolerance(t *testing.T) {
	cases := []struct {
		v, target, tol float64
		want           bool
	}{
		{85, 100, 0.15, true},
		{84.99, 100, 0.15, false},
		{100, 100, 0.15, true},
		{115, 100, 0.15, true},
		{115.01, 100, 0.15, false},
		{110, 100, float64(10) / 100, true},
		{90, 100, 0.1, true},
		{110.01, 100, 0.1, false},
		{606864.5, 551695, 0.1, true},
	}
	for _, tc := range cases {
		if got := WithinTolerance(tc.v, tc.target, tc.tol); got != tc.want {
			t.Fatalf("WithinTolerance(%v, %v, %v) = %v, want %v", tc.v, tc.target, tc.tol, got, tc.want)
		}
	}
}

func TestIndexLookup(t *testing.T) {
	idx := NewIndex([]Entry{
		{ISO3: "CIV", Label: "Côte d'Ivoire"},
		{ISO3: "COD", Label: "Congo"},
		{ISO3: "COG", Label: "Congo"},
		{ISO3: "XXX", Label: "   "},
	})

	if got := idx.Lookup("cote d'ivoire"); len(got) != 1 || got[0].ISO3 != "CIV" {
		t.Fatalf("unexpected lookup result %+v", got)
	}
	if got := idx.Lookup("CONGO"); len(got) != 2 {
		t.Fatalf("expected both congos, got %+v", got)
	}
	if idx.Contains("Ivory") {
		t.Fatalf("prefix must not match")
	}
	if idx.Contains("  ") {
		t.Fatalf("blank candidate must not match")
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", idx.Len())
	}
}
