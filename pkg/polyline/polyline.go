// Package polyline implements Google's encoded polyline format for compact
// transfer of coordinate sequences to map clients.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"

	"github.com/kidroute/kidroute/internal/geo"
)

// DefaultPrecision is the number of decimal places used by Google and most map SDKs.
const DefaultPrecision = 5

// ErrTruncated is returned when an encoded string ends in the middle of a value.
var ErrTruncated = errors.New("polyline: truncated input")

// Encode encodes coordinates at DefaultPrecision.
func Encode(coords []geo.Coordinate) string {
	return EncodeWithPrecision(coords, DefaultPrecision)
}

// EncodeWithPrecision encodes coordinates using the given number of decimal places.
func EncodeWithPrecision(coords []geo.Coordinate, precision int) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	buf := make([]byte, 0, len(coords)*8)
	var prevLat, prevLon int

	for _, c := range coords {
		lat := int(math.Round(c.Lat * factor))
		lon := int(math.Round(c.Lon * factor))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

// Decode decodes a string produced at DefaultPrecision.
func Decode(encoded string) ([]geo.Coordinate, error) {
	return DecodeWithPrecision(encoded, DefaultPrecision)
}

// DecodeWithPrecision decodes a polyline encoded with the given precision.
func DecodeWithPrecision(encoded string, precision int) ([]geo.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	var (
		coords   []geo.Coordinate
		lat, lon int
		pos      int
	)

	for pos < len(encoded) {
		dLat, next, err := readValue(encoded, pos)
		if err != nil {
			return nil, err
		}
		dLon, next, err := readValue(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dLat
		lon += dLon
		coords = append(coords, geo.Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return coords, nil
}

// appendValue zigzag-encodes v and appends it in 5-bit chunks.
func appendValue(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}

	for u >= 0x20 {
		buf = append(buf, byte((u&0x1f)|0x20)+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

func readValue(s string, pos int) (int, int, error) {
	var result, shift int

	for {
		if pos >= len(s) {
			return 0, pos, ErrTruncated
		}
		b := int(s[pos]) - 63
		pos++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), pos, nil
	}
	return result >> 1, pos, nil
}
