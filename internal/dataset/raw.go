package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/geo"
)

// rawCountry mirrors the loosely typed dataset record. Fields that appear in
// several shapes across dataset revisions use the sum types below.
type rawCountry struct {
	ISO2         string                    `json:"iso2"`
	ISO3         string                    `json:"iso3"`
	Name         domain.CountryName        `json:"name"`
	Translations map[string]rawTranslation `json:"translations"`
	Capital      rawCapital                `json:"capital"`
	Region       string                    `json:"region"`
	LatLng       []*float64                `json:"latlng"`
	Area         *float64                  `json:"area"`
	Population   *float64                  `json:"population"`
	Borders      []string                  `json:"borders"`
	Flag         *rawImage                 `json:"flag"`
	CoatOfArms   *rawImage                 `json:"coatOfArms"`
	Independent  *bool                     `json:"independent"`
	ShapeSVG     *domain.Shape             `json:"shapeSvg"`
	Shape        json.RawMessage           `json:"shape"`
	Difficulty   int                       `json:"difficulty"`
}

type rawImage struct {
	SVG *string `json:"svg"`
	PNG *string `json:"png"`
}

func (i *rawImage) svg() string {
	if i == nil || i.SVG == nil {
		return ""
	}
	return strings.TrimSpace(*i.SVG)
}

// rawTranslation accepts "Name" or {"common": ..., "official": ...}.
type rawTranslation domain.Translation

func (t *rawTranslation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = rawTranslation{Common: s}
		return nil
	}
	var obj domain.Translation
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	*t = rawTranslation(obj)
	return nil
}

// rawCapital accepts a string, a list of strings or null.
type rawCapital string

func (c *rawCapital) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("capital: %w", err)
		}
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				*c = rawCapital(s)
				return nil
			}
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("capital: %w", err)
	}
	*c = rawCapital(strings.TrimSpace(s))
	return nil
}

// DecodeRecord normalizes one raw JSON record. fallbackISO3 is used when the
// record itself has no iso3 (datasets keyed by code).
func DecodeRecord(data []byte, fallbackISO3 string) (domain.Country, error) {
	var raw rawCountry
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Country{}, fmt.Errorf("decode country: %w", err)
	}
	return raw.normalize(fallbackISO3)
}

func (r rawCountry) normalize(fallbackISO3 string) (domain.Country, error) {
	iso3 := strings.ToUpper(strings.TrimSpace(r.ISO3))
	if iso3 == "" {
		iso3 = strings.ToUpper(strings.TrimSpace(fallbackISO3))
	}
	if len(iso3) != 3 {
		return domain.Country{}, fmt.Errorf("%w: iso3 %q", domain.ErrInvalidInput, iso3)
	}
	if strings.TrimSpace(r.Name.Common) == "" {
		return domain.Country{}, fmt.Errorf("%w: %s has no common name", domain.ErrInvalidInput, iso3)
	}

	c := domain.Country{
		ISO3:        iso3,
		ISO2:        strings.ToUpper(strings.TrimSpace(r.ISO2)),
		Name:        r.Name,
		Capital:     string(r.Capital),
		Region:      strings.TrimSpace(r.Region),
		FlagSVG:     r.Flag.svg(),
		CoatSVG:     r.CoatOfArms.svg(),
		Independent: r.Independent == nil || *r.Independent,
		Borders:     r.Borders,
		Difficulty:  r.Difficulty,
		Area:        positive(r.Area),
		Population:  positive(r.Population),
	}

	if len(r.Translations) > 0 {
		c.Translations = make(map[string]domain.Translation, len(r.Translations))
		for key, t := range r.Translations {
			tr := domain.Translation(t)
			if tr.Best() == "" {
				continue
			}
			c.Translations[strings.ToLower(key)] = tr
		}
	}

	if len(r.LatLng) == 2 && r.LatLng[0] != nil && r.LatLng[1] != nil {
		c.LatLng = geo.NewLatLng(*r.LatLng[0], *r.LatLng[1])
	}

	shape, err := r.shape()
	if err != nil {
		return domain.Country{}, fmt.Errorf("%s: %w", iso3, err)
	}
	if shape.Valid() {
		c.Shape = shape
	}
	return c, nil
}

// shape prefers shapeSvg; "shape" may hold either an SVG outline or GeoJSON.
func (r rawCountry) shape() (*domain.Shape, error) {
	if r.ShapeSVG.Valid() {
		return r.ShapeSVG, nil
	}
	data := bytes.TrimSpace(r.Shape)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var probe struct {
		Type    string          `json:"type"`
		ViewBox json.RawMessage `json:"viewBox"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("shape: %w", err)
	}
	if probe.Type == "" && probe.ViewBox != nil {
		var s domain.Shape
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		return &s, nil
	}
	return shapeFromGeoJSON(probe.Type, data)
}

func positive(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0
	}
	return *v
}
