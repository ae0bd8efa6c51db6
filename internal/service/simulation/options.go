package simulation

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"deliverysim/internal/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	DefaultMaxActiveRoutes   = 10
	DefaultSpeedMultiplier   = 2
	DefaultBaseTickInterval  = time.Second
	DefaultFirstTickDelay    = 100 * time.Millisecond
	DefaultReplenishInterval = 30 * time.Second
	DefaultSkipProbability   = 0.3
	DefaultTickSeconds       = 1.0
	initialSolveWorkers      = 4
)

// Options configure a Scheduler. Zero values take the defaults above.
type Options struct {
	Company           model.Company
	MaxActiveRoutes   int
	SpeedMultiplier   float64
	BaseTickInterval  time.Duration
	FirstTickDelay    time.Duration
	ReplenishInterval time.Duration
	SkipProbability   *float64 // chance a route sits out a tick; nil takes the default, 0 never skips
	TickSeconds       float64  // simulated seconds advanced per tick
	Extent            orb.Bound
	Rand              *rand.Rand
	Logger            *slog.Logger
}

func (o *Options) setDefaults() {
	if o.MaxActiveRoutes <= 0 {
		o.MaxActiveRoutes = DefaultMaxActiveRoutes
	}
	if o.SpeedMultiplier < 1 {
		o.SpeedMultiplier = DefaultSpeedMultiplier
	}
	if o.BaseTickInterval <= 0 {
		o.BaseTickInterval = DefaultBaseTickInterval
	}
	if o.FirstTickDelay <= 0 {
		o.FirstTickDelay = DefaultFirstTickDelay
	}
	if o.ReplenishInterval <= 0 {
		o.ReplenishInterval = DefaultReplenishInterval
	}
	if o.SkipProbability == nil {
		o.SkipProbability = Probability(DefaultSkipProbability)
	}
	if o.TickSeconds <= 0 {
		o.TickSeconds = DefaultTickSeconds
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Probability returns a pointer to p for optional Options fields
func Probability(p float64) *float64 {
	return &p
}

// ExtentFromMercator converts a Web Mercator (EPSG:3857) bound in meters to lon/lat
func ExtentFromMercator(b orb.Bound) orb.Bound {
	return project.Bound(b, project.Mercator.ToWGS84)
}

// tickInterval is the effective tick period for a multiplier
func tickInterval(base time.Duration, multiplier float64) time.Duration {
	return time.Duration(float64(base) / multiplier)
}
