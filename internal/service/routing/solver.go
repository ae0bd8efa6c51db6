package routing

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
)

// ErrNoRoute is returned when no path connects the two points
var ErrNoRoute = errors.New("no route between points")

// Solution is a solved route: a lon/lat path plus its totals
type Solution struct {
	Path          orb.LineString
	TotalLength   float64 // meters
	TotalDuration time.Duration
}

// AverageSpeed returns the speed in meters per second implied by the totals
func (s Solution) AverageSpeed() float64 {
	if s.TotalDuration <= 0 {
		return 0
	}
	return s.TotalLength / s.TotalDuration.Seconds()
}

// Solver finds a drivable path between two lon/lat points
type Solver interface {
	Solve(ctx context.Context, origin, destination orb.Point) (Solution, error)
}
