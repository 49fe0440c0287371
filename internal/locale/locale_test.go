package locale

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		base string
		key  string
	}{
		{"fr-FR", "fr", "fra"},
		{"FR", "fr", "fra"},
		{"de_AT", "de", "deu"},
		{"pt-BR", "pt", "por"},
		{"fa", "fa", "per"},
		{"zh-Hant-TW", "zh", "zho"},
		{"en-GB", "en", "eng"},
		{"xx", "en", "eng"},
		{"", "en", "eng"},
		{"   ", "en", "eng"},
		{"not a tag", "en", "eng"},
	}
	for _, tc := range cases {
		got := Normalize(tc.in)
		if got.Base != tc.base || got.Key != tc.key {
			t.Fatalf("Normalize(%q) = %+v, want {%s %s}", tc.in, got, tc.base, tc.key)
		}
	}
}

func TestKeyOfUnknownFallsBack(t *testing.T) {
	if got := KeyOf("xx"); got != DefaultKey {
		t.Fatalf("expected %s, got %s", DefaultKey, got)
	}
	if !Supported("br") || Supported("xx") {
		t.Fatalf("unexpected support table")
	}
}
