// internal/service/engine/engine.go

// Package engine fuses the independently polled feeds into one consistent
// entity model and pushes diffs, trails and metrics to a sink.
//
// All engine state (store, interpolator, trails, criteria) sits behind one
// mutex. Fetches are the only operations that leave the lock: each runs in
// its own goroutine and re-enters through apply, which discards the result
// when the source generation changed while it was in flight.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geointel/internal/clock"
	"geointel/internal/domain/intel"
	"geointel/internal/metrics"
	"geointel/internal/service/analytics"
	"geointel/internal/service/filter"
	"geointel/internal/service/motion"
	"geointel/internal/service/scheduler"
	"geointel/internal/service/store"
	"geointel/internal/service/trail"
)

// ErrUnknownSource is returned for source ids the engine does not know
var ErrUnknownSource = errors.New("unknown source")

const (
	motionTask = "motion"
	trailTask  = "trails"
)

// Config contains configuration for the engine
type Config struct {
	// EnabledSources are enabled by Start
	EnabledSources []string

	// SchedulerResolution is how often the scheduler checks for due tasks.
	// Zero leaves ticking to the caller through Tick.
	SchedulerResolution time.Duration

	// PublishTimeout bounds a single sink delivery
	PublishTimeout time.Duration

	// TrailTTL overrides the trail lifetime when non-zero
	TrailTTL time.Duration
}

type sourceState struct {
	intel.Source
	gen         uint64
	inFlight    bool
	lastFetched time.Time
	lastErr     string
	failures    int
}

var _ intel.Engine = (*Engine)(nil)

// Engine implements intel.Engine
type Engine struct {
	clock   clock.Clock
	log     *slog.Logger
	fetcher intel.Fetcher
	config  Config
	sched   *scheduler.Scheduler
	outbox  *outbox

	mu       sync.Mutex
	sources  map[string]*sourceState
	order    []string
	store    *store.Store
	motion   *motion.Interpolator
	trails   *trail.Manager
	criteria intel.Criteria
	metrics  intel.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // in-flight fetches
	runWG  sync.WaitGroup // scheduler loop and outbox dispatcher
}

// New creates an engine with the five default sources, all disabled
func New(config Config, fetcher intel.Fetcher, sink intel.Sink, c clock.Clock, log *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		clock:    c,
		log:      log,
		fetcher:  fetcher,
		config:   config,
		sched:    scheduler.New(c, log),
		outbox:   newOutbox(sink, config.PublishTimeout, log),
		sources:  make(map[string]*sourceState),
		store:    store.New(),
		motion:   motion.New(),
		trails:   trail.New(config.TrailTTL),
		criteria: intel.DefaultCriteria(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, src := range intel.DefaultSources() {
		e.sources[src.ID] = &sourceState{Source: src}
		e.order = append(e.order, src.ID)
	}
	e.metrics = analytics.Compute(nil, e.criteria)
	return e
}

// Start schedules the interpolation and trail tasks, starts the event
// dispatcher, enables the configured sources and, unless the resolution is
// zero, runs the scheduler loop until ctx is cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.sched.Schedule(motionTask, motion.TickInterval, e.interpolate)
	e.sched.Schedule(trailTask, trail.SweepInterval, e.sweepTrails)

	e.runWG.Add(1)
	go func() {
		defer e.runWG.Done()
		e.outbox.run(e.ctx)
	}()

	for _, id := range e.config.EnabledSources {
		if err := e.EnableSource(id); err != nil {
			return fmt.Errorf("failed to enable source: %w", err)
		}
	}

	if e.config.SchedulerResolution > 0 {
		runCtx, cancel := context.WithCancel(ctx)
		context.AfterFunc(e.ctx, cancel)

		e.runWG.Add(1)
		go func() {
			defer e.runWG.Done()
			defer cancel()
			e.sched.Run(runCtx, e.config.SchedulerResolution)
		}()
	}

	e.log.Info("engine_started", "sources", e.config.EnabledSources)
	return nil
}

// Stop cancels every task, abandons in-flight fetches and delivers the
// remaining queued events. It waits for background goroutines or ctx.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	for _, id := range e.order {
		st := e.sources[id]
		e.sched.Cancel(taskName(id))
		st.gen++
		st.inFlight = false
	}
	e.mu.Unlock()
	e.sched.Cancel(motionTask)
	e.sched.Cancel(trailTask)

	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		e.runWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("engine stop: %w", ctx.Err())
	}

	if err := e.outbox.flush(ctx); err != nil {
		return fmt.Errorf("engine stop: %w", err)
	}
	e.log.Info("engine_stopped")
	return nil
}

// EnableSource starts polling a source: one fetch immediately, then one per
// poll interval. Enabling a running source is a no-op.
func (e *Engine) EnableSource(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if st.Enabled {
		return nil
	}

	st.Enabled = true
	e.sched.Schedule(taskName(id), st.PollInterval, func(context.Context) {
		e.poll(id)
	})
	e.log.Info("source_enabled", "source", id, "interval", st.PollInterval)

	e.startFetchLocked(st)
	return nil
}

// DisableSource stops polling a source, invalidates any in-flight fetch and
// emits a removal diff for all of its entities. Disabling a stopped source is
// a no-op.
func (e *Engine) DisableSource(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.sources[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if !st.Enabled {
		return nil
	}

	st.Enabled = false
	st.gen++
	st.inFlight = false
	e.sched.Cancel(taskName(id))

	now := e.clock.Now()
	diff := e.store.RemoveSource(id)
	e.motion.ForgetSource(id)
	dropped := e.trails.DropSource(id)

	metrics.EntitiesCurrent.WithLabelValues(id).Set(0)
	e.emitDiffLocked(id, diff, false, now)
	if dropped > 0 {
		e.emitTrailsLocked(now)
	}
	e.recomputeLocked(now)

	e.log.Info("source_disabled", "source", id, "removed", len(diff.Removed))
	return nil
}

// Sources returns the status of every source in display order
func (e *Engine) Sources() []intel.SourceStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]intel.SourceStatus, 0, len(e.order))
	for _, id := range e.order {
		st := e.sources[id]
		next, _ := e.sched.Next(taskName(id))
		out = append(out, intel.SourceStatus{
			Source:              st.Source,
			EntityCount:         e.store.Count(id),
			LastFetched:         st.lastFetched,
			LastError:           st.lastErr,
			ConsecutiveFailures: st.failures,
			FetchInFlight:       st.inFlight,
			NextPoll:            next,
		})
	}
	return out
}

// Entities returns displayed entities: the last fix, or its interpolation
func (e *Engine) Entities(kind intel.Kind) []intel.GeoEntity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayedLocked(kind)
}

// Fixes returns the authoritative entities as last reported by the feeds
func (e *Engine) Fixes(kind intel.Kind) []intel.GeoEntity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetAll(kind)
}

// Filtered returns displayed entities that pass the current criteria
func (e *Engine) Filtered(kind intel.Kind) []intel.GeoEntity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return filter.Apply(e.displayedLocked(kind), e.criteria)
}

// Trails returns the live trail segments
func (e *Engine) Trails() []intel.TrailSegment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trails.Active(e.clock.Now())
}

// Criteria returns the current filter criteria
func (e *Engine) Criteria() intel.Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// SetCriteria replaces the filter criteria and recomputes metrics
func (e *Engine) SetCriteria(c intel.Criteria) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.criteria = c.Normalize()
	e.recomputeLocked(e.clock.Now())
	return nil
}

// Metrics returns the current analytics snapshot
func (e *Engine) Metrics() intel.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// Tooltip returns the hover payload for a displayed entity
func (e *Engine) Tooltip(sourceID, entityID string) (intel.Tooltip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.store.Get(sourceID, entityID)
	if !ok {
		return intel.Tooltip{}, false
	}
	tip := analytics.Tooltip(e.displayLocked(sourceID, ent))
	if fix, ok := e.store.Fix(sourceID, entityID); ok {
		tip.Fields = append(tip.Fields, intel.Field{Label: "Last fix", Value: fix.At.UTC().Format(time.RFC3339)})
	}
	return tip, true
}

// Tick runs every task due at the clock's current time. It is the manual
// counterpart of the scheduler loop.
func (e *Engine) Tick(ctx context.Context) int {
	return e.sched.Tick(ctx)
}

// WaitIdle blocks until no fetch is in flight
func (e *Engine) WaitIdle() {
	e.wg.Wait()
}

// Flush delivers every queued event to the sink
func (e *Engine) Flush(ctx context.Context) error {
	return e.outbox.flush(ctx)
}

func (e *Engine) displayedLocked(kind intel.Kind) []intel.GeoEntity {
	out := []intel.GeoEntity{}
	for _, sourceID := range e.store.SourceIDs() {
		for _, ent := range e.store.Source(sourceID, kind) {
			out = append(out, e.displayLocked(sourceID, ent))
		}
	}
	return out
}

func (e *Engine) displayLocked(sourceID string, ent intel.GeoEntity) intel.GeoEntity {
	if pos, ok := e.motion.Position(sourceID, ent.ID); ok {
		return ent.WithPosition(pos)
	}
	return ent
}

// recomputeLocked refreshes metrics and emits them when they changed
func (e *Engine) recomputeLocked(now time.Time) {
	m := analytics.Compute(e.store.GetAll(""), e.criteria)
	metrics.ThreatScore.Set(float64(m.ThreatScore))
	if m == e.metrics {
		return
	}
	e.metrics = m
	e.outbox.enqueue(intel.Event{Type: intel.EventMetrics, At: now, Metrics: &m})
}

func taskName(sourceID string) string {
	return "source:" + sourceID
}
