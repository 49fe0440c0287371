// Package locale maps UI locale tags onto the supported base languages and
// the three-letter keys used by dataset translations.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Default is the reference locale used for canonical names.
const Default = "en"

// DefaultKey is the translation key of Default.
const DefaultKey = "eng"

var translationKeys = map[string]string{
	"en": "eng",
	"fr": "fra",
	"es": "spa",
	"pt": "por",
	"de": "deu",
	"it": "ita",
	"nl": "nld",
	"ru": "rus",
	"zh": "zho",
	"ja": "jpn",
	"ko": "kor",
	"ar": "ara",
	"tr": "tur",
	"pl": "pol",
	"cs": "ces",
	"hr": "hrv",
	"hu": "hun",
	"et": "est",
	"fi": "fin",
	"sv": "swe",
	"sk": "slk",
	"sr": "srp",
	"fa": "per",
	"ur": "urd",
	"id": "ind",
	"cy": "cym",
	"br": "bre",
}

// Locale is a normalized UI locale.
type Locale struct {
	Base string // supported two-letter language, e.g. "fr"
	Key  string // translation key, e.g. "fra"
}

func (l Locale) String() string { return l.Base }

// Tag returns the language tag of the base, used for collation and number formatting.
func (l Locale) Tag() language.Tag {
	tag, err := language.Parse(l.Base)
	if err != nil {
		return language.English
	}
	return tag
}

// Normalize never fails; unknown or empty input yields English.
func Normalize(raw string) Locale {
	base := baseOf(raw)
	if _, ok := translationKeys[base]; !ok {
		base = Default
	}
	return Locale{Base: base, Key: KeyOf(base)}
}

// KeyOf returns the translation key for a base locale, DefaultKey when unknown.
func KeyOf(base string) string {
	if key, ok := translationKeys[base]; ok {
		return key
	}
	return DefaultKey
}

// Supported reports whether base is a supported base locale.
func Supported(base string) bool {
	_, ok := translationKeys[base]
	return ok
}

func baseOf(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Default
	}
	if tag, err := language.Parse(raw); err == nil {
		if b, conf := tag.Base(); conf != language.No {
			return b.String()
		}
	}
	if i := strings.IndexAny(raw, "-_"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
