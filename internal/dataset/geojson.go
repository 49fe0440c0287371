package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geoquiz-service/internal/domain"
)

// shapeFromGeoJSON projects Polygon and MultiPolygon geometries onto an SVG
// plane (x = lon, y = -lat). Other geometry types are ignored.
func shapeFromGeoJSON(kind string, data []byte) (*domain.Shape, error) {
	var geoms []orb.Geometry
	switch kind {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("shape: %w", err)
		}
		geoms = append(geoms, g.Geometry())
	}

	var (
		polygons []orb.Polygon
		bound    orb.Bound
		seen     bool
	)
	for _, g := range geoms {
		switch p := g.(type) {
		case orb.Polygon:
			polygons = append(polygons, p)
		case orb.MultiPolygon:
			polygons = append(polygons, p...)
		default:
			continue
		}
		if !seen {
			bound, seen = g.Bound(), true
		} else {
			bound = bound.Union(g.Bound())
		}
	}
	if !seen {
		return nil, nil
	}

	minX, maxX := bound.Min[0], bound.Max[0]
	minY, maxY := -bound.Max[1], -bound.Min[1]
	width, height := round3(maxX-minX), round3(maxY-minY)
	if width <= 0 || height <= 0 {
		return nil, nil
	}

	shape := &domain.Shape{
		Width:    width,
		Height:   height,
		ViewBox:  strings.Join([]string{coord(minX), coord(minY), coord(width), coord(height)}, " "),
		FillRule: "evenodd",
	}
	for _, poly := range polygons {
		if d := polygonPath(poly); d != "" {
			shape.Paths = append(shape.Paths, d)
		}
	}
	return shape, nil
}

// polygonPath renders every ring of a polygon into one path so holes cut out
// under the even-odd fill rule.
func polygonPath(poly orb.Polygon) string {
	var b strings.Builder
	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		pts := ring
		if ring.Closed() {
			pts = ring[:len(ring)-1]
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		for i, p := range pts {
			if i == 0 {
				b.WriteByte('M')
			} else {
				b.WriteString(" L")
			}
			b.WriteString(coord(p[0]))
			b.WriteByte(' ')
			b.WriteString(coord(-p[1]))
		}
		b.WriteString(" Z")
	}
	return b.String()
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0
	}
	return r
}

func coord(v float64) string {
	return strconv.FormatFloat(round3(v), 'f', -1, 64)
}
