package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/geo"
)

func TestDistance_IdenticalPointsIsZero(t *testing.T) {
	points := []geo.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: -89.9, Lon: 179.9},
		{Lat: 90, Lon: 0},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, geo.Distance(p, p))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]geo.Coordinate{
		{{Lat: 40.7128, Lon: -74.0060}, {Lat: 40.7589, Lon: -73.9851}},
		{{Lat: 52.3676, Lon: 4.9041}, {Lat: 51.9244, Lon: 4.4777}},
		{{Lat: -33.86, Lon: 151.2}, {Lat: 51.5, Lon: -0.12}},
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 180}},
	}

	for _, p := range pairs {
		ab := geo.Distance(p[0], p[1])
		ba := geo.Distance(p[1], p[0])
		assert.InDelta(t, ab, ba, 1e-6)
	}
}

func TestDistance_OneDegreeAtEquator(t *testing.T) {
	d := geo.Distance(geo.Coordinate{Lat: 0, Lon: 0}, geo.Coordinate{Lat: 0, Lon: 1})
	assert.InEpsilon(t, 111195.0, d, 0.01)
}

func TestDistance_NYCMidtown(t *testing.T) {
	d := geo.Distance(
		geo.Coordinate{Lat: 40.7128, Lon: -74.0060},
		geo.Coordinate{Lat: 40.7589, Lon: -73.9851},
	)
	// Lower Manhattan to Times Square is roughly 5.4 km.
	assert.InDelta(t, 5400, d, 200)
}

func TestDistance_AntipodalIsFinite(t *testing.T) {
	d := geo.Distance(geo.Coordinate{Lat: 0, Lon: 0}, geo.Coordinate{Lat: 0, Lon: 180})
	require.False(t, math.IsNaN(d))
	assert.InEpsilon(t, math.Pi*geo.EarthRadiusMeters, d, 1e-9)

	d = geo.Distance(geo.Coordinate{Lat: 90, Lon: 0}, geo.Coordinate{Lat: -90, Lon: 0})
	require.False(t, math.IsNaN(d))
	assert.InEpsilon(t, math.Pi*geo.EarthRadiusMeters, d, 1e-9)
}

func TestDistance_OutOfRangeInputStaysFinite(t *testing.T) {
	d := geo.Distance(geo.Coordinate{Lat: 120, Lon: 400}, geo.Coordinate{Lat: -95, Lon: -500})
	assert.False(t, math.IsNaN(d))
	assert.False(t, math.IsInf(d, 0))
}

func TestDestination_RoundTripsDistance(t *testing.T) {
	origin := geo.Coordinate{Lat: 52.3676, Lon: 4.9041}

	for _, bearing := range []float64{0, math.Pi / 4, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
		dest := geo.Destination(origin, 1000, bearing)
		assert.InDelta(t, 1000, geo.Distance(origin, dest), 0.5)
	}
}

func TestDestination_NorthIncreasesLatitude(t *testing.T) {
	origin := geo.Coordinate{Lat: 10, Lon: 20}
	dest := geo.Destination(origin, 111195, 0)

	assert.InDelta(t, 11.0, dest.Lat, 0.01)
	assert.InDelta(t, 20.0, dest.Lon, 1e-9)
}

func TestCircleToPolygon(t *testing.T) {
	center := geo.Coordinate{Lat: 40.7128, Lon: -74.0060}

	ring := geo.CircleToPolygon(center, 250, 64)

	require.Len(t, ring, 65)
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")
	for _, p := range ring {
		assert.InDelta(t, 250, geo.Distance(center, p), 0.5)
	}
}

func TestCircleToPolygon_DefaultPointCount(t *testing.T) {
	ring := geo.CircleToPolygon(geo.Coordinate{}, 100, 0)
	assert.Len(t, ring, 65)
}

func TestBoundingBox_Contains(t *testing.T) {
	box := geo.BoundsOf(
		geo.Coordinate{Lat: 40.7589, Lon: -73.9851},
		geo.Coordinate{Lat: 40.7128, Lon: -74.0060},
	)

	assert.True(t, box.Contains(geo.Coordinate{Lat: 40.73, Lon: -74.0}))
	assert.True(t, box.Contains(geo.Coordinate{Lat: 40.7128, Lon: -74.0060}))
	assert.False(t, box.Contains(geo.Coordinate{Lat: 40.80, Lon: -74.0}))
	assert.False(t, box.Contains(geo.Coordinate{Lat: 40.73, Lon: -73.9}))
}

func TestCoordinate_Validity(t *testing.T) {
	assert.True(t, geo.Coordinate{Lat: 1, Lon: 2}.IsFinite())
	assert.False(t, geo.Coordinate{Lat: math.NaN(), Lon: 2}.IsFinite())
	assert.False(t, geo.Coordinate{Lat: 1, Lon: math.Inf(1)}.IsFinite())

	assert.True(t, geo.Coordinate{Lat: -90, Lon: 180}.InRange())
	assert.False(t, geo.Coordinate{Lat: 91, Lon: 0}.InRange())
}
