package routing

import (
	"context"
	"time"

	"deliverysim/internal/util"

	"github.com/paulmach/orb"
)

// DirectSolver returns the great-circle path between the two points, split
// into Segments pieces, at a nominal speed. It needs no network.
type DirectSolver struct {
	Segments     int
	NominalSpeed float64 // meters per second
}

func NewDirectSolver() *DirectSolver {
	return &DirectSolver{Segments: 32, NominalSpeed: 13.4}
}

func (d *DirectSolver) Solve(ctx context.Context, origin, destination orb.Point) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}

	length := util.HaversineDistance(origin, destination)
	if length == 0 {
		return Solution{}, ErrNoRoute
	}

	speed := d.NominalSpeed
	if speed <= 0 {
		speed = 13.4
	}

	return Solution{
		Path:          util.GreatCirclePath(origin, destination, d.Segments),
		TotalLength:   length,
		TotalDuration: time.Duration(length / speed * float64(time.Second)),
	}, nil
}
