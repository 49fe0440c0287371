package domain

import (
	"strings"

	"geoquiz-service/internal/geo"
)

// CountryName holds a country name in the reference language.
type CountryName struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}

// Translation is a localized name. Raw datasets carry either a bare string or
// a {common, official} record; both decode into this shape.
type Translation struct {
	Common   string `json:"common"`
	Official string `json:"official,omitempty"`
}

// Best returns the first non-blank of Common and Official.
func (t Translation) Best() string {
	if s := strings.TrimSpace(t.Common); s != "" {
		return t.Common
	}
	if s := strings.TrimSpace(t.Official); s != "" {
		return t.Official
	}
	return ""
}

// Shape is a country's vector outline.
type Shape struct {
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	ViewBox  string   `json:"viewBox"`
	Paths    []string `json:"paths"`
	FillRule string   `json:"fillRule,omitempty"`
}

// Valid reports whether the outline has at least one path and a bounding box.
func (s *Shape) Valid() bool {
	if s == nil || strings.TrimSpace(s.ViewBox) == "" {
		return false
	}
	for _, p := range s.Paths {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// Country is the canonical, immutable dataset record. Raw JSON never decodes
// into it directly; see package dataset.
type Country struct {
	ISO3         string
	ISO2         string
	Name         CountryName
	Translations map[string]Translation
	Capital      string
	Region       string
	LatLng       *geo.LatLng
	Area         float64
	Population   float64
	FlagSVG      string
	CoatSVG      string
	Independent  bool
	Shape        *Shape
	Borders      []string
	Difficulty   int
}

var capitalPlaceholders = map[string]struct{}{
	"n/a":  {},
	"na":   {},
	"none": {},
	"-":    {},
}

// HasUsableCapital reports whether the capital is non-empty and not a placeholder token.
func (c Country) HasUsableCapital() bool {
	capital := strings.TrimSpace(c.Capital)
	if capital == "" {
		return false
	}
	_, placeholder := capitalPlaceholders[strings.ToLower(capital)]
	return !placeholder
}

func (c Country) HasFlag() bool  { return strings.TrimSpace(c.FlagSVG) != "" }
func (c Country) HasCoat() bool  { return strings.TrimSpace(c.CoatSVG) != "" }
func (c Country) HasShape() bool { return c.Shape.Valid() }

// HasArea and HasPopulation report a finite positive value; non-finite values
// are dropped when the dataset is decoded.
func (c Country) HasArea() bool       { return c.Area > 0 }
func (c Country) HasPopulation() bool { return c.Population > 0 }

// CountryLite is the resolver's lightweight projection of a country.
type CountryLite struct {
	ISO3          string      `json:"iso3"`
	NameEN        string      `json:"nameEN"`
	NameLocalized string      `json:"nameLocalized"`
	Capital       *string     `json:"capital"`
	Region        *string     `json:"region"`
	LatLng        *geo.LatLng `json:"latlng"`
}

// NameSuggestion is one autocomplete entry; the list doubles as the answer whitelist.
type NameSuggestion struct {
	ISO3 string `json:"iso3"`
	Name string `json:"name"`
}

// CapitalSuggestion is one capital autocomplete entry.
type CapitalSuggestion struct {
	ISO3    string `json:"iso3"`
	Capital string `json:"capital"`
}

// Feedback is the per-step or per-question answer state.
type Feedback string

const (
	FeedbackIdle    Feedback = "idle"
	FeedbackCorrect Feedback = "correct"
	FeedbackWrong   Feedback = "wrong"
)

// Valid reports whether f is one of the known feedback values.
func (f Feedback) Valid() bool {
	switch f {
	case FeedbackIdle, FeedbackCorrect, FeedbackWrong:
		return true
	}
	return false
}

// Guess records one submission in order.
type Guess struct {
	Label      string `json:"label"`
	ISO3       string `json:"iso3,omitempty"`
	DistanceKm *int   `json:"distanceKm,omitempty"`
	IsCorrect  bool   `json:"isCorrect"`
}
