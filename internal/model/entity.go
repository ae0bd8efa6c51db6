package model

import (
	"time"

	"github.com/paulmach/orb"
)

// Observation is one reported state of a delivery vehicle as seen by the receiving side
type Observation struct {
	EntityID      string    `json:"entity_id" msgpack:"entity_id"`
	Company       Company   `json:"company" msgpack:"company"`
	Name          string    `json:"name" msgpack:"name"`
	PayloadWeight float64   `json:"payload_weight" msgpack:"payload_weight"`
	Speed         float64   `json:"speed" msgpack:"speed"` // meters per second
	Position      orb.Point `json:"position" msgpack:"position"`
	Heading       float64   `json:"heading" msgpack:"heading"`
}

// Entity is the receiver-side aggregate of a route, keyed by EntityID
type Entity struct {
	Observation
	Observations int       `json:"observations" msgpack:"observations"`
	FirstSeen    time.Time `json:"first_seen" msgpack:"first_seen"`
	LastSeen     time.Time `json:"last_seen" msgpack:"last_seen"`
}

// CompanyStats is the per-company rollup maintained by the aggregator
type CompanyStats struct {
	Company             Company `json:"company" msgpack:"company"`
	Name                string  `json:"name" msgpack:"name"`
	ActiveCount         int     `json:"active_count" msgpack:"active_count"`
	TotalCompleted      int     `json:"total_completed" msgpack:"total_completed"`
	ActivePayloadWeight float64 `json:"active_payload_weight" msgpack:"active_payload_weight"`
	MaxSpeed            float64 `json:"max_speed" msgpack:"max_speed"`
}
