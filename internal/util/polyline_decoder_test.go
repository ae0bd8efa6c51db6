package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePolyline(t *testing.T) {
	// Reference example from the encoded polyline algorithm documentation
	points, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, points, 3)

	expected := [][2]float64{
		{-120.2, 38.5},
		{-120.95, 40.7},
		{-126.453, 43.252},
	}
	for i, p := range points {
		assert.InDelta(t, expected[i][0], p.Lon(), 1e-9, "lon %d", i)
		assert.InDelta(t, expected[i][1], p.Lat(), 1e-9, "lat %d", i)
	}
}

func TestDecodePolylineTruncated(t *testing.T) {
	_, err := DecodePolyline("_p~iF~ps|U_ulL")
	assert.ErrorIs(t, err, ErrTruncatedPolyline)
}

func TestDecodePolylineEmpty(t *testing.T) {
	points, err := DecodePolyline("")
	require.NoError(t, err)
	assert.Empty(t, points)
}
