package polyline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/pkg/polyline"
)

func TestDecode_GoogleExample(t *testing.T) {
	coords, err := polyline.Decode("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, coords, 3)

	want := []geo.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	}
	for i := range want {
		assert.InDelta(t, want[i].Lat, coords[i].Lat, 1e-5)
		assert.InDelta(t, want[i].Lon, coords[i].Lon, 1e-5)
	}
}

func TestEncode_GoogleExample(t *testing.T) {
	got := polyline.Encode([]geo.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	})
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", got)
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "", polyline.Encode(nil))

	coords, err := polyline.Decode("")
	require.NoError(t, err)
	assert.Empty(t, coords)
}

func TestRoundTrip_Precision6(t *testing.T) {
	in := []geo.Coordinate{
		{Lat: 40.712776, Lon: -74.005974},
		{Lat: 40.758896, Lon: -73.985130},
	}

	enc := polyline.EncodeWithPrecision(in, 6)
	out, err := polyline.DecodeWithPrecision(enc, 6)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i].Lat, out[i].Lat, 1e-6)
		assert.InDelta(t, in[i].Lon, out[i].Lon, 1e-6)
	}
}

func TestDecode_Truncated(t *testing.T) {
	_, err := polyline.Decode("_p~iF~ps|U_")
	assert.ErrorIs(t, err, polyline.ErrTruncated)
}
