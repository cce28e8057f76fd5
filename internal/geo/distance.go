// Package geo is the single source of distance math in the codebase.
// Matching, display, and search-radius checks all route through it so that
// every distance-dependent decision is numerically consistent.
package geo

import (
	"math"

	"musomatch/backend/internal/models"
)

// Mean Earth radius in miles.
const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between two points using
// the haversine formula.
func DistanceMiles(a, b models.GeoPoint) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether point lies within radiusMiles of center.
// The boundary is inclusive.
func WithinRadius(center, point models.GeoPoint, radiusMiles float64) bool {
	return DistanceMiles(center, point) <= radiusMiles
}
