package config

import "time"

// Worker intervals
const (
	// DefaultBaseTickInterval is the tick period at a speed multiplier of 1
	DefaultBaseTickInterval = time.Second

	// DefaultReplenishInterval defines how often the scheduler may start a new route
	DefaultReplenishInterval = 30 * time.Second

	// DefaultMirrorInterval defines how often changed entities are written to Redis
	DefaultMirrorInterval = 2 * time.Second

	// DefaultMirrorTTL lets mirrored keys expire once the dashboard stops refreshing them
	DefaultMirrorTTL = 5 * time.Minute

	// StatsLogInterval defines how often the dashboard logs company rollups
	StatsLogInterval = 30 * time.Second

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 5 * time.Second
)
