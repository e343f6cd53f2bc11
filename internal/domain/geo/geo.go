// Package geo holds the great-circle helpers used for nearby lookups and
// dataset validation.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Qatar bounding box. Mall coordinates outside it are reported by data
// validation but never rejected on write.
const (
	QatarMinLat = 24.5
	QatarMaxLat = 26.0
	QatarMinLon = 50.5
	QatarMaxLon = 52.0
)

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locatable is anything that can be placed on the map.
type Locatable interface {
	Location() Point
}

// Valid reports whether the point lies within the legal degree ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// InQatar reports whether the point falls inside the Qatar bounding box.
func InQatar(p Point) bool {
	return p.Latitude >= QatarMinLat && p.Latitude <= QatarMaxLat &&
		p.Longitude >= QatarMinLon && p.Longitude <= QatarMaxLon
}

// DistanceKm returns the Haversine distance between a and b in kilometers.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

// IsWithinRadius reports whether point is at most radiusMeters from center.
func IsWithinRadius(point, center Point, radiusMeters float64) bool {
	return DistanceKm(point, center)*1000 <= radiusMeters
}

// FilterWithinRadius returns the items located within radiusMeters of center,
// in input order. The result is never nil.
func FilterWithinRadius[T Locatable](items []T, center Point, radiusMeters float64) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if IsWithinRadius(item.Location(), center, radiusMeters) {
			out = append(out, item)
		}
	}
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
