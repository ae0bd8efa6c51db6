package util

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6371000.0

// HaversineDistance returns the great circle distance in meters between two lon/lat points
func HaversineDistance(a, b orb.Point) float64 {
	point1 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat(), a.Lon()))
	point2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat(), b.Lon()))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(point1, point2).Angle())
	return angle.Radians() * earthRadiusMeters
}

// GreatCirclePath splits the great circle between start and end into the given number of segments
func GreatCirclePath(start, end orb.Point, segments int) orb.LineString {
	if segments < 1 {
		segments = 1
	}

	startPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(start.Lat(), start.Lon()))
	endPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(end.Lat(), end.Lon()))

	path := make(orb.LineString, 0, segments+1)
	path = append(path, start)
	for i := 1; i < segments; i++ {
		ll := s2.LatLngFromPoint(s2.Interpolate(float64(i)/float64(segments), startPoint, endPoint))
		path = append(path, orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()})
	}
	return append(path, end)
}

// NormalizeHeading maps any bearing in degrees onto [0, 360)
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
