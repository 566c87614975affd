// Package geo provides great-circle geometry on WGS84 coordinates.
package geo

import (
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by all calculations.
const EarthRadiusMeters = 6371000.0

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsFinite reports whether both components are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

// InRange reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) InRange() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Distance returns the haversine distance between a and b in meters.
// The result is symmetric and exactly zero for identical points.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	// Rounding can push h slightly outside [0,1] near antipodes.
	h = clamp(h, 0, 1)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Destination returns the point reached by travelling distanceMeters from
// origin along the initial bearing (radians, clockwise from north).
func Destination(origin Coordinate, distanceMeters, bearing float64) Coordinate {
	delta := distanceMeters / EarthRadiusMeters
	phi1 := toRadians(origin.Lat)
	lambda1 := toRadians(origin.Lon)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(bearing)
	phi2 := math.Asin(clamp(sinPhi2, -1, 1))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(bearing)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return Coordinate{
		Lat: toDegrees(phi2),
		Lon: normalizeLon(toDegrees(lambda2)),
	}
}

// CircleToPolygon approximates a circle of radiusMeters around center with
// the given number of vertices. The ring is closed by repeating the first
// vertex, so the result has points+1 entries. Non-positive point counts
// fall back to 64.
func CircleToPolygon(center Coordinate, radiusMeters float64, points int) []Coordinate {
	if points <= 0 {
		points = 64
	}

	ring := make([]Coordinate, 0, points+1)
	for i := 0; i < points; i++ {
		bearing := float64(i) / float64(points) * 2 * math.Pi
		ring = append(ring, Destination(center, radiusMeters, bearing))
	}
	ring = append(ring, ring[0])

	return ring
}

// BoundingBox is an axis-aligned lat/lon box.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// BoundsOf returns the smallest box containing both points.
func BoundsOf(a, b Coordinate) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(a.Lat, b.Lat),
		MinLon: math.Min(a.Lon, b.Lon),
		MaxLat: math.Max(a.Lat, b.Lat),
		MaxLon: math.Max(a.Lon, b.Lon),
	}
}

// Contains checks if a point is within the box, edges included.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// normalizeLon wraps a longitude into [-180, 180].
func normalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	return math.Mod(lon+540, 360) - 180
}
