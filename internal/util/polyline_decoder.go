package util

import (
	"errors"

	"github.com/paulmach/orb"
)

var ErrTruncatedPolyline = errors.New("truncated encoded polyline")

// DecodePolyline converts an encoded polyline string to a lon/lat line string.
// Implementation based on Google's Encoded Polyline Algorithm Format
// Default precision is 1e-5 (the Google Maps and OpenRouteService standard)
func DecodePolyline(encoded string) (orb.LineString, error) {
	return DecodePolylineWithPrecision(encoded, 1e-5)
}

// DecodePolylineWithPrecision decodes a polyline with a custom precision factor
// For GraphHopper API, use 1e-6 precision (as they use a multiplier of 1,000,000)
func DecodePolylineWithPrecision(encoded string, precision float64) (orb.LineString, error) {
	var points orb.LineString
	index, lat, lng := 0, 0, 0

	next := func() (int, error) {
		shift, result := 0, 0
		for {
			if index >= len(encoded) {
				return 0, ErrTruncatedPolyline
			}
			b := int(encoded[index]) - 63
			index++
			result |= (b & 0x1f) << shift
			shift += 5
			if b < 0x20 {
				break
			}
		}

		// Handle the sign bit
		if result&1 != 0 {
			return ^(result >> 1), nil
		}
		return result >> 1, nil
	}

	for index < len(encoded) {
		dLat, err := next()
		if err != nil {
			return points, err
		}
		dLng, err := next()
		if err != nil {
			return points, err
		}
		lat += dLat
		lng += dLng

		points = append(points, orb.Point{float64(lng) * precision, float64(lat) * precision})
	}

	return points, nil
}
