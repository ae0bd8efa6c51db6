package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"deliverysim/internal/util"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// RouteStatus represents the progress state of a simulated delivery
type RouteStatus int

const (
	RouteStatusEnRoute RouteStatus = iota
	RouteStatusComplete
)

func (s RouteStatus) String() string {
	switch s {
	case RouteStatusEnRoute:
		return "EnRoute"
	case RouteStatusComplete:
		return "Complete"
	}
	return fmt.Sprintf("RouteStatus(%d)", int(s))
}

const (
	MinPayloadWeight = 1_000
	MaxPayloadWeight = 10_000
)

var (
	ErrDegeneratePath = errors.New("route path must have at least two points")
	ErrInvalidSpeed   = errors.New("route speed must be positive")
)

var lastRouteID atomic.Int64

// Route is a simulated vehicle's planned path plus its live progress.
// A Route is owned by a single scheduler and is not safe for concurrent use.
type Route struct {
	ID               int64          `json:"id"`
	Company          Company        `json:"company"`
	Path             orb.LineString `json:"path"`
	AverageSpeed     float64        `json:"average_speed"` // meters per second
	SecondsTraveled  float64        `json:"seconds_traveled"`
	DistanceTraveled float64        `json:"distance_traveled"` // meters
	LastPosition     orb.Point      `json:"last_position"`
	CurrentHeading   float64        `json:"current_heading"` // degrees clockwise from north
	Status           RouteStatus    `json:"status"`
	PayloadWeight    float64        `json:"payload_weight"`

	length float64
}

// NewRoute validates the path and speed and places the vehicle at the start of the path.
// rng draws the payload weight; it must not be shared with other goroutines.
func NewRoute(company Company, path orb.LineString, metersPerSecond float64, rng *rand.Rand) (*Route, error) {
	if len(path) < 2 {
		return nil, ErrDegeneratePath
	}
	if !(metersPerSecond > 0) || math.IsInf(metersPerSecond, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSpeed, metersPerSecond)
	}

	length := geo.LengthHaversine(path)
	if length <= 0 {
		return nil, ErrDegeneratePath
	}

	return &Route{
		ID:            lastRouteID.Add(1),
		Company:       company,
		Path:          path,
		AverageSpeed:  metersPerSecond,
		LastPosition:  path[0],
		Status:        RouteStatusEnRoute,
		PayloadWeight: float64(MinPayloadWeight + rng.IntN(MaxPayloadWeight-MinPayloadWeight)),
		length:        length,
	}, nil
}

// EntityID returns the key the receiving side uses for this route, e.g. "Red:12"
func (r *Route) EntityID() string {
	return fmt.Sprintf("%s:%d", r.Company, r.ID)
}

func (r *Route) StartPoint() orb.Point { return r.Path[0] }

func (r *Route) EndPoint() orb.Point { return r.Path[len(r.Path)-1] }

// Length returns the geodesic length of the path in meters
func (r *Route) Length() float64 { return r.length }

// Duration is the time the whole path takes at the average speed
func (r *Route) Duration() time.Duration {
	return time.Duration(r.length / r.AverageSpeed * float64(time.Second))
}

// Advance moves the vehicle forward by the given number of seconds and returns its new position.
// The route becomes Complete once the distance traveled reaches the path length.
func (r *Route) Advance(seconds float64) orb.Point {
	if r.Status == RouteStatusComplete {
		return r.LastPosition
	}
	if seconds < 0 {
		seconds = 0
	}

	r.SecondsTraveled += seconds
	r.DistanceTraveled = r.SecondsTraveled * r.AverageSpeed

	var point orb.Point
	if r.DistanceTraveled >= r.length {
		point = r.EndPoint()
		r.Status = RouteStatusComplete
	} else {
		point, _ = geo.PointAtDistanceAlongLine(r.Path, r.DistanceTraveled)
	}

	// Coincident points have no bearing; keep the previous heading
	if !point.Equal(r.LastPosition) {
		r.CurrentHeading = util.NormalizeHeading(geo.Bearing(r.LastPosition, point))
	}
	r.LastPosition = point

	return point
}

// PreAdvance places the vehicle part way along the path without reporting it,
// so that freshly created routes look like they are already in progress.
func (r *Route) PreAdvance(seconds float64) {
	if r.Status == RouteStatusComplete || seconds <= 0 {
		return
	}

	r.SecondsTraveled = seconds
	r.DistanceTraveled = seconds * r.AverageSpeed
	if r.DistanceTraveled >= r.length {
		// Leave the final step for Advance so the route still reports at least once
		r.SecondsTraveled = math.Nextafter(r.length/r.AverageSpeed, 0)
		r.DistanceTraveled = r.SecondsTraveled * r.AverageSpeed
	}

	point, bearing := geo.PointAtDistanceAlongLine(r.Path, r.DistanceTraveled)
	r.LastPosition = point
	r.CurrentHeading = util.NormalizeHeading(bearing)
}
