package model

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// eastbound is roughly 1113m long along the equator
var eastbound = orb.LineString{{0, 0}, {0.005, 0}, {0.01, 0}}

func TestNewRouteRejectsDegenerateInput(t *testing.T) {
	tests := map[string]struct {
		path  orb.LineString
		speed float64
		err   error
	}{
		"no points":      {orb.LineString{}, 10, ErrDegeneratePath},
		"single point":   {orb.LineString{{1, 1}}, 10, ErrDegeneratePath},
		"zero length":    {orb.LineString{{1, 1}, {1, 1}}, 10, ErrDegeneratePath},
		"zero speed":     {eastbound, 0, ErrInvalidSpeed},
		"negative speed": {eastbound, -3, ErrInvalidSpeed},
		"nan speed":      {eastbound, math.NaN(), ErrInvalidSpeed},
		"infinite speed": {eastbound, math.Inf(1), ErrInvalidSpeed},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			route, err := NewRoute(CompanyRed, test.path, test.speed, testRand())
			assert.ErrorIs(t, err, test.err)
			assert.Nil(t, route)
		})
	}
}

func TestNewRoute(t *testing.T) {
	rng := testRand()
	first, err := NewRoute(CompanyRed, eastbound, 10, rng)
	require.NoError(t, err)
	second, err := NewRoute(CompanyBlue, eastbound, 10, rng)
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, RouteStatusEnRoute, first.Status)
	assert.Equal(t, eastbound[0], first.LastPosition)
	assert.InDelta(t, 1113, first.Length(), 1)
	assert.Regexp(t, `^Red:\d+$`, first.EntityID())
	assert.Regexp(t, `^Blue:\d+$`, second.EntityID())

	for i := 0; i < 100; i++ {
		r, err := NewRoute(CompanyGreen, eastbound, 10, rng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.PayloadWeight, float64(MinPayloadWeight))
		assert.Less(t, r.PayloadWeight, float64(MaxPayloadWeight))
		assert.Equal(t, math.Trunc(r.PayloadWeight), r.PayloadWeight)
	}
}

func TestAdvanceUntilComplete(t *testing.T) {
	route, err := NewRoute(CompanyRed, eastbound, 100, testRand())
	require.NoError(t, err)

	prevDistance := route.DistanceTraveled
	ticks := 0
	for route.Status == RouteStatusEnRoute {
		ticks++
		require.Less(t, ticks, 100, "route never completed")

		point := route.Advance(1)
		assert.Greater(t, route.DistanceTraveled, prevDistance)
		assert.Equal(t, point, route.LastPosition)
		assert.InDelta(t, route.SecondsTraveled*route.AverageSpeed, route.DistanceTraveled, 1e-9)

		if route.DistanceTraveled >= route.Length() {
			assert.Equal(t, RouteStatusComplete, route.Status)
		} else {
			assert.Equal(t, RouteStatusEnRoute, route.Status)
		}
		prevDistance = route.DistanceTraveled
	}

	assert.Equal(t, 12, ticks)
	assert.Equal(t, route.EndPoint(), route.LastPosition)

	// Complete is terminal
	before := *route
	route.Advance(1)
	assert.Equal(t, before.DistanceTraveled, route.DistanceTraveled)
	assert.Equal(t, RouteStatusComplete, route.Status)
}

func TestAdvanceHeading(t *testing.T) {
	route, err := NewRoute(CompanyRed, eastbound, 50, testRand())
	require.NoError(t, err)

	route.Advance(1)
	assert.InDelta(t, 90, route.CurrentHeading, 0.01)

	northbound := orb.LineString{{10, 10}, {10, 10.01}}
	route, err = NewRoute(CompanyRed, northbound, 50, testRand())
	require.NoError(t, err)
	route.Advance(1)
	assert.InDelta(t, 0, route.CurrentHeading, 0.01)

	westbound := orb.LineString{{10, 10}, {9.99, 10}}
	route, err = NewRoute(CompanyRed, westbound, 50, testRand())
	require.NoError(t, err)
	route.Advance(1)
	assert.InDelta(t, 270, route.CurrentHeading, 0.01)
}

func TestAdvanceZeroKeepsHeading(t *testing.T) {
	route, err := NewRoute(CompanyRed, eastbound, 50, testRand())
	require.NoError(t, err)

	route.Advance(1)
	heading := route.CurrentHeading
	position := route.LastPosition

	route.Advance(0)
	assert.Equal(t, heading, route.CurrentHeading)
	assert.Equal(t, position, route.LastPosition)
}

func TestAdvanceIsDeterministic(t *testing.T) {
	a, err := NewRoute(CompanyRed, eastbound, 33, testRand())
	require.NoError(t, err)
	b, err := NewRoute(CompanyRed, eastbound, 33, testRand())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Advance(1.5), b.Advance(1.5))
		assert.Equal(t, a.CurrentHeading, b.CurrentHeading)
	}
}

func TestPreAdvance(t *testing.T) {
	route, err := NewRoute(CompanyRed, eastbound, 10, testRand())
	require.NoError(t, err)

	route.PreAdvance(50)
	assert.Equal(t, 50.0, route.SecondsTraveled)
	assert.InDelta(t, 500, route.DistanceTraveled, 1e-9)
	assert.Equal(t, RouteStatusEnRoute, route.Status)
	assert.Greater(t, route.LastPosition.Lon(), 0.0)
	assert.InDelta(t, 90, route.CurrentHeading, 0.01)

	// Pre-advancing past the end still leaves one observation to report
	long, err := NewRoute(CompanyRed, eastbound, 10, testRand())
	require.NoError(t, err)
	long.PreAdvance(long.Duration().Seconds() * 2)
	assert.Equal(t, RouteStatusEnRoute, long.Status)
	long.Advance(1)
	assert.Equal(t, RouteStatusComplete, long.Status)
}

func TestParseCompany(t *testing.T) {
	tests := map[string]struct {
		in      any
		want    Company
		wantErr bool
	}{
		"name":         {"Red", CompanyRed, false},
		"lower name":   {"purple", CompanyPurple, false},
		"number":       {2, CompanyBlue, false},
		"number text":  {"3", CompanyGreen, false},
		"out of range": {9, 0, true},
		"unknown":      {"orange", 0, true},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := ParseCompany(test.in)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, c)
		})
	}
	assert.Equal(t, "Black", CompanyBlack.String())
	assert.Equal(t, "Company(7)", Company(7).String())
}
