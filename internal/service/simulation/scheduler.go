package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deliverysim/internal/model"
	"deliverysim/internal/service/routing"
	"deliverysim/internal/service/startpoint"
	"deliverysim/internal/util"

	"github.com/paulmach/orb"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/iter"
	"golang.org/x/sync/semaphore"
)

var (
	ErrAlreadyConnected = errors.New("scheduler already connected")
	ErrInvalidRate      = errors.New("speed multiplier must be at least 1")
)

// Publisher transmits route state. Implementations must not block for long.
type Publisher interface {
	SendObservation(route *model.Route) error
	SendDelete(route *model.Route) error
}

// Status summarizes the scheduler for the control API
type Status struct {
	SessionID    string        `json:"session_id"`
	Company      string        `json:"company"`
	Running      bool          `json:"running"`
	Multiplier   float64       `json:"multiplier"`
	TickInterval time.Duration `json:"tick_interval"`
	ActiveRoutes int           `json:"active_routes"`
	MaxRoutes    int           `json:"max_routes"`
	Candidates   int           `json:"candidates"`
}

// Scheduler owns the active routes, advances them on a tick timer and
// replenishes them on a slower timer.
//
// Tick, Replenish and Reset share one try-acquire guard: when the guard is
// held the timer firing is dropped, never queued.
type Scheduler struct {
	opts      Options
	solver    routing.Solver
	source    startpoint.Source
	publisher Publisher
	logger    *slog.Logger
	sessionID string

	guard *semaphore.Weighted

	// mu protects the active set and route state; the rng is only used with
	// guard held
	mu         sync.RWMutex
	active     []*model.Route
	candidates []orb.Point

	timersMu   sync.Mutex
	running    bool
	multiplier float64
	ticker     *time.Ticker
	cancel     context.CancelFunc
	wg         *conc.WaitGroup
}

func NewScheduler(solver routing.Solver, source startpoint.Source, publisher Publisher, opts Options) *Scheduler {
	opts.setDefaults()
	return &Scheduler{
		opts:       opts,
		solver:     solver,
		source:     source,
		publisher:  publisher,
		logger:     opts.Logger.With("company", opts.Company.String()),
		sessionID:  util.ShortUUID(),
		guard:      semaphore.NewWeighted(1),
		multiplier: opts.SpeedMultiplier,
	}
}

// Connect loads candidate start points on first use, creates the initial
// population if no routes are active, then starts both timers.
func (s *Scheduler) Connect(ctx context.Context) error {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if s.running {
		return ErrAlreadyConnected
	}

	// Wait out any work still holding the guard from a previous session
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return err
	}
	err := s.prepare(ctx)
	s.guard.Release(1)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg = conc.NewWaitGroup()
	s.ticker = time.NewTicker(s.opts.FirstTickDelay)
	s.running = true

	ticker, wg := s.ticker, s.wg
	interval := tickInterval(s.opts.BaseTickInterval, s.multiplier)
	wg.Go(func() { s.runTicks(loopCtx, ticker, wg) })
	wg.Go(func() { s.runReplenish(loopCtx) })

	s.logger.Info("simulation connected",
		"session", s.sessionID, "interval", interval, "active", s.ActiveCount())
	return nil
}

func (s *Scheduler) prepare(ctx context.Context) error {
	if s.candidates == nil {
		start := time.Now()
		candidates, err := s.source.QueryAll(ctx)
		if err != nil {
			return fmt.Errorf("query start points: %w", err)
		}
		if len(candidates) == 0 {
			return startpoint.ErrNoStartPoints
		}
		s.mu.Lock()
		s.candidates = candidates
		s.mu.Unlock()
		s.logger.Info("start points loaded", "count", len(candidates), "took", time.Since(start))
	}

	if s.ActiveCount() == 0 {
		s.populate(ctx)
	}
	return nil
}

type initialRoute struct {
	origin, destination orb.Point
	fraction            float64
	solution            routing.Solution
	err                 error
}

// populate creates between half and full capacity routes, each already part
// way along its path. Random draws happen up front so the outcome depends only
// on the seed; solves run in parallel.
func (s *Scheduler) populate(ctx context.Context) {
	maxRoutes := s.opts.MaxActiveRoutes
	count := maxRoutes / 2
	if span := maxRoutes - maxRoutes/2; span > 0 {
		count += s.opts.Rand.IntN(span)
	}

	plans := make([]initialRoute, count)
	for i := range plans {
		plans[i] = initialRoute{
			origin:      s.randomCandidate(),
			destination: s.randomPointInExtent(),
			fraction:    s.opts.Rand.Float64(),
		}
	}

	mapper := iter.Mapper[initialRoute, initialRoute]{MaxGoroutines: initialSolveWorkers}
	solved := mapper.Map(plans, func(p *initialRoute) initialRoute {
		out := *p
		out.solution, out.err = s.solver.Solve(ctx, p.origin, p.destination)
		return out
	})

	created := 0
	for _, p := range solved {
		if p.err != nil {
			s.logger.Warn("initial route solve failed", "origin", p.origin, "destination", p.destination, "err", p.err)
			continue
		}
		route, err := s.newRoute(p.solution)
		if err != nil {
			s.logger.Warn("initial route rejected", "err", err)
			continue
		}
		route.PreAdvance(p.fraction * route.Duration().Seconds())

		s.mu.Lock()
		s.active = append(s.active, route)
		s.mu.Unlock()
		created++
	}

	s.logger.Info("initial routes created", "requested", count, "created", created)
}

// Disconnect stops both timers and waits for in-flight work to finish.
// Active routes are kept so a later Connect resumes them.
func (s *Scheduler) Disconnect() {
	s.timersMu.Lock()
	if !s.running {
		s.timersMu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	s.cancel()
	wg := s.wg
	s.timersMu.Unlock()

	wg.Wait()
	s.logger.Info("simulation disconnected", "active", s.ActiveCount())
}

// Reset sends a delete for every active route and empties the set.
// It waits for the guard rather than skipping.
func (s *Scheduler) Reset(ctx context.Context) error {
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.guard.Release(1)

	s.mu.Lock()
	routes := s.active
	s.active = nil
	s.mu.Unlock()

	for _, r := range routes {
		if err := s.publisher.SendDelete(r); err != nil {
			s.logger.Warn("send delete failed", "entity", r.EntityID(), "err", err)
		}
	}
	s.logger.Info("simulation reset", "removed", len(routes))
	return nil
}

// SetRate changes the speed multiplier and reprograms the tick timer right
// away. Progress lives on each route so nothing already elapsed is lost.
func (s *Scheduler) SetRate(multiplier float64) error {
	if !(multiplier >= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, multiplier)
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	s.multiplier = multiplier
	interval := tickInterval(s.opts.BaseTickInterval, multiplier)
	if s.running {
		s.ticker.Reset(interval)
	}
	s.logger.Info("speed multiplier changed", "multiplier", multiplier, "interval", interval)
	return nil
}

func (s *Scheduler) Multiplier() float64 {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return s.multiplier
}

// Tick advances every active route one step. It returns false when another
// tick or replenish held the guard and this invocation was dropped.
func (s *Scheduler) Tick() bool {
	if !s.guard.TryAcquire(1) {
		s.logger.Debug("tick dropped, previous work still running")
		return false
	}
	defer s.guard.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.active[:0]
	for _, r := range s.active {
		if s.opts.Rand.Float64() < *s.opts.SkipProbability {
			kept = append(kept, r)
			continue
		}

		r.Advance(s.opts.TickSeconds)
		if err := s.publisher.SendObservation(r); err != nil {
			s.logger.Warn("send observation failed", "entity", r.EntityID(), "err", err)
		}

		if r.Status == model.RouteStatusComplete {
			if err := s.publisher.SendDelete(r); err != nil {
				s.logger.Warn("send delete failed", "entity", r.EntityID(), "err", err)
			}
			s.logger.Info("route complete", "entity", r.EntityID(), "seconds", r.SecondsTraveled)
			continue
		}
		kept = append(kept, r)
	}

	clear(s.active[len(kept):])
	s.active = kept
	return true
}

// Replenish starts at most one new route when below capacity. It returns
// true only when a route was added.
func (s *Scheduler) Replenish(ctx context.Context) bool {
	if !s.guard.TryAcquire(1) {
		s.logger.Debug("replenish dropped, guard held")
		return false
	}
	defer s.guard.Release(1)

	s.mu.RLock()
	full := len(s.active) >= s.opts.MaxActiveRoutes
	noCandidates := len(s.candidates) == 0
	s.mu.RUnlock()

	if full || noCandidates {
		return false
	}

	origin, destination := s.randomCandidate(), s.randomPointInExtent()
	solution, err := s.solver.Solve(ctx, origin, destination)
	if err != nil {
		s.logger.Warn("route solve failed", "origin", origin, "destination", destination, "err", err)
		return false
	}

	route, err := s.newRoute(solution)
	if err != nil {
		s.logger.Warn("solved route rejected", "err", err)
		return false
	}

	s.mu.Lock()
	s.active = append(s.active, route)
	s.mu.Unlock()

	s.logger.Info("route started", "entity", route.EntityID(),
		"meters", route.Length(), "duration", route.Duration().Round(time.Second))
	return true
}

// Snapshot copies the active routes
func (s *Scheduler) Snapshot() []model.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Route, len(s.active))
	for i, r := range s.active {
		result[i] = *r
	}
	return result
}

func (s *Scheduler) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

func (s *Scheduler) Status() Status {
	s.timersMu.Lock()
	running, multiplier := s.running, s.multiplier
	s.timersMu.Unlock()

	s.mu.RLock()
	active, candidates := len(s.active), len(s.candidates)
	s.mu.RUnlock()

	return Status{
		SessionID:    s.sessionID,
		Company:      s.opts.Company.String(),
		Running:      running,
		Multiplier:   multiplier,
		TickInterval: tickInterval(s.opts.BaseTickInterval, multiplier),
		ActiveRoutes: active,
		MaxRoutes:    s.opts.MaxActiveRoutes,
		Candidates:   candidates,
	}
}

// runTicks fires the first tick after FirstTickDelay and then every interval.
// Each firing runs on its own goroutine so a slow tick is overlapped, and then
// dropped by the guard, rather than delaying the timer.
func (s *Scheduler) runTicks(ctx context.Context, ticker *time.Ticker, wg *conc.WaitGroup) {
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		if first {
			first = false
			s.timersMu.Lock()
			if s.running {
				ticker.Reset(tickInterval(s.opts.BaseTickInterval, s.multiplier))
			}
			s.timersMu.Unlock()
		}

		wg.Go(func() { s.Tick() })
	}
}

func (s *Scheduler) runReplenish(ctx context.Context) {
	ticker := time.NewTicker(s.opts.ReplenishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Replenish(ctx)
		}
	}
}

func (s *Scheduler) newRoute(solution routing.Solution) (*model.Route, error) {
	return model.NewRoute(s.opts.Company, solution.Path, solution.AverageSpeed(), s.opts.Rand)
}

func (s *Scheduler) randomCandidate() orb.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidates[s.opts.Rand.IntN(len(s.candidates))]
}

func (s *Scheduler) randomPointInExtent() orb.Point {
	e := s.opts.Extent
	return orb.Point{
		e.Min.Lon() + s.opts.Rand.Float64()*(e.Max.Lon()-e.Min.Lon()),
		e.Min.Lat() + s.opts.Rand.Float64()*(e.Max.Lat()-e.Min.Lat()),
	}
}
