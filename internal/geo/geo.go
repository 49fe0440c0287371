// Package geo holds coordinate helpers used for miss-distance hints.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by HaversineKm.
const EarthRadiusKm = 6371.0

// LatLng is a [lat, lon] pair in degrees.
type LatLng [2]float64

// NewLatLng returns a pointer to a LatLng when both components are finite.
func NewLatLng(lat, lon float64) *LatLng {
	if !finite(lat) || !finite(lon) {
		return nil
	}
	return &LatLng{lat, lon}
}

// Valid reports whether both components are finite numbers.
func (p LatLng) Valid() bool {
	return finite(p[0]) && finite(p[1])
}

// HaversineKm returns the great-circle distance between a and b rounded to
// the nearest kilometre.
func HaversineKm(a, b LatLng) int {
	lat1, lat2 := radians(a[0]), radians(b[0])
	dLat := radians(b[0] - a[0])
	dLon := radians(b[1] - a[1])

	s := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return int(math.Round(EarthRadiusKm * c))
}

func radians(d float64) float64 { return d * math.Pi / 180 }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
