// Package geo holds great-circle helpers for ranking delivery requests.
package geo

import (
	"math"

	"github.com/five82/tanker/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0088

// HaversineKm returns the great-circle distance between two points in
// kilometres.
func HaversineKm(a, b models.Coordinates) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * degToRad
	dLng := (b.Longitude - a.Longitude) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*degToRad)*math.Cos(b.Latitude*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinKm reports whether b lies within radiusKm of a.
func WithinKm(a, b models.Coordinates, radiusKm float64) bool {
	return HaversineKm(a, b) <= radiusKm
}
