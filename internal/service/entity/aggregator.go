package entity

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"deliverysim/internal/model"
	"deliverysim/internal/service/storage"
)

// Aggregator folds received observations into live entities and per-company
// rollups. It implements telemetry.Handler.
type Aggregator struct {
	mu        sync.Mutex
	entities  *storage.MemoryStorage[string, model.Entity]
	companies map[model.Company]*model.CompanyStats
	observers []Observer
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithObserver registers an observer. Observers can only be added at construction.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) { a.observers = append(a.observers, o) }
}

// WithClock replaces time.Now for FirstSeen/LastSeen stamps
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		entities:  storage.NewMemoryStorage[string, model.Entity](),
		companies: make(map[model.Company]*model.CompanyStats),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Upsert creates the entity on first sight or updates it in place. Exactly one
// of EntityCreated or ObservationReceived is fired per call.
func (a *Aggregator) Upsert(obs model.Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	current, exists := a.entities.Get(obs.EntityID)

	if !exists {
		stats := a.statsFor(obs.Company)
		stats.ActiveCount++
		stats.ActivePayloadWeight += obs.PayloadWeight

		e := model.Entity{Observation: obs, Observations: 1, FirstSeen: now, LastSeen: now}
		a.entities.Set(obs.EntityID, e)
		a.logger.Debug("entity created", "entity", obs.EntityID, "company", obs.Company.String())
		a.notify(Event{Type: EntityCreated, Entity: e, Stats: *stats})
		return
	}

	// Company and payload are fixed by the first Add for a key
	obs.Company = current.Company
	obs.PayloadWeight = current.PayloadWeight
	current.Observation = obs
	current.Observations++
	current.LastSeen = now

	stats := a.statsFor(current.Company)
	if obs.Speed > stats.MaxSpeed {
		stats.MaxSpeed = obs.Speed
	}

	a.entities.Set(obs.EntityID, current)
	a.notify(Event{Type: ObservationReceived, Entity: current, Stats: *stats})
}

// Remove folds the entity into its company's completed count and deletes it.
// Removing an unknown id is a no-op.
func (a *Aggregator) Remove(entityID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, exists := a.entities.Get(entityID)
	if !exists {
		return
	}

	stats := a.statsFor(current.Company)
	stats.ActiveCount--
	stats.TotalCompleted++
	stats.ActivePayloadWeight -= current.PayloadWeight

	a.entities.Delete(entityID)
	a.logger.Debug("entity purged", "entity", entityID, "observations", current.Observations)
	a.notify(Event{Type: EntityPurged, Entity: current, Stats: *stats})
}

// Companies returns a copy of every rollup, ordered by company
func (a *Aggregator) Companies() []model.CompanyStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]model.CompanyStats, 0, len(a.companies))
	for _, s := range a.companies {
		result = append(result, *s)
	}
	slices.SortFunc(result, func(x, y model.CompanyStats) int { return int(x.Company) - int(y.Company) })
	return result
}

// Company returns the rollup for c, if one has been created
func (a *Aggregator) Company(c model.Company) (model.CompanyStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.companies[c]
	if !ok {
		return model.CompanyStats{}, false
	}
	return *s, true
}

// Entities returns the live entities ordered by id
func (a *Aggregator) Entities() []model.Entity {
	result := a.entities.GetAllValues()
	slices.SortFunc(result, func(x, y model.Entity) int {
		switch {
		case x.EntityID < y.EntityID:
			return -1
		case x.EntityID > y.EntityID:
			return 1
		}
		return 0
	})
	return result
}

func (a *Aggregator) Entity(id string) (model.Entity, bool) {
	return a.entities.Get(id)
}

// Store exposes the dirty-tracked entity storage for mirroring
func (a *Aggregator) Store() storage.Storage[string, model.Entity] {
	return a.entities
}

// statsFor returns the rollup for c, creating it lazily. Callers hold a.mu.
func (a *Aggregator) statsFor(c model.Company) *model.CompanyStats {
	s, ok := a.companies[c]
	if !ok {
		s = &model.CompanyStats{Company: c, Name: c.String()}
		a.companies[c] = s
	}
	return s
}

// notify runs under a.mu so observers see events in application order
func (a *Aggregator) notify(e Event) {
	for _, o := range a.observers {
		o.OnEvent(e)
	}
}
