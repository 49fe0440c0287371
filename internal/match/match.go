// Package match holds the pure answer-matching primitives: text
// normalization, the suggestion whitelist and numeric tolerance.
package match

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, strips diacritics, collapses whitespace and trims.
// It is idempotent.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Equal compares two strings after normalization. Blank strings never match.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// WithinTolerance reports target*(1-tol) <= v <= target*(1+tol). tol is a
// fraction of whole percents, so both sides are scaled by 100 to keep the
// bounds exact: 115 is within 15% of 100.
func WithinTolerance(v, target, tol float64) bool {
	pct := math.Round(tol * 100)
	return v*100 >= target*(100-pct) && v*100 <= target*(100+pct)
}

// Entry is one whitelisted answer.
type Entry struct {
	ISO3  string
	Label string
}

// Index is an exact-match whitelist over normalized labels. It is immutable
// after construction and safe for concurrent use.
type Index struct {
	byKey map[string][]Entry
}

// NewIndex builds an index; entries with a blank label are skipped.
func NewIndex(entries []Entry) *Index {
	idx := &Index{byKey: make(map[string][]Entry, len(entries))}
	for _, e := range entries {
		key := Normalize(e.Label)
		if key == "" {
			continue
		}
		idx.byKey[key] = append(idx.byKey[key], e)
	}
	return idx
}

// Lookup returns every entry whose normalized label equals the normalized candidate.
func (i *Index) Lookup(candidate string) []Entry {
	if i == nil {
		return nil
	}
	key := Normalize(candidate)
	if key == "" {
		return nil
	}
	return i.byKey[key]
}

// Contains reports whether candidate exactly matches a whitelisted label.
func (i *Index) Contains(candidate string) bool {
	return len(i.Lookup(candidate)) > 0
}

// Len is the number of distinct normalized labels.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byKey)
}
