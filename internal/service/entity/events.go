package entity

import (
	"deliverysim/internal/model"
)

// EventType tells observers what happened to an entity
type EventType int

const (
	EntityCreated EventType = iota
	ObservationReceived
	EntityPurged
)

func (t EventType) String() string {
	switch t {
	case EntityCreated:
		return "created"
	case ObservationReceived:
		return "observation"
	case EntityPurged:
		return "purged"
	default:
		return "unknown"
	}
}

// Event carries the affected entity and its company rollup right after the change
type Event struct {
	Type   EventType          `json:"type"`
	Entity model.Entity       `json:"entity"`
	Stats  model.CompanyStats `json:"stats"`
}

// Observer is notified of every aggregator change, in order, from the
// goroutine that applied it
type Observer interface {
	OnEvent(e Event)
}

// ObserverFunc adapts a plain function to Observer
type ObserverFunc func(e Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
