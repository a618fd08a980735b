// internal/service/engine/poll.go

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"geointel/internal/domain/intel"
	"geointel/internal/metrics"
	"geointel/internal/service/motion"
)

// poll is the scheduled task body of a source
func (e *Engine) poll(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.sources[id]; ok {
		e.startFetchLocked(st)
	}
}

// startFetchLocked launches one fetch unless the source is disabled or its
// previous fetch has not been applied yet.
func (e *Engine) startFetchLocked(st *sourceState) {
	if !st.Enabled {
		return
	}
	if st.inFlight {
		e.log.Debug("poll_skipped", "source", st.ID, "reason", "fetch in flight")
		return
	}

	st.inFlight = true
	gen := st.gen
	kind := st.Kind
	id := st.ID

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.fetch(id, kind, gen)
	}()
}

func (e *Engine) fetch(id string, kind intel.Kind, gen uint64) {
	start := e.clock.Now()
	records, err := e.fetcher.FetchFeed(e.ctx, kind)
	metrics.FetchDurationMs.WithLabelValues(id).Observe(float64(e.clock.Now().Sub(start).Milliseconds()))

	e.apply(id, gen, records, err)
}

// apply runs the fetch -> diff -> trail -> metrics sequence for one result
func (e *Engine) apply(id string, gen uint64, records []intel.Record, fetchErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.sources[id]
	if st.gen != gen {
		metrics.FetchesTotal.WithLabelValues(id, "discarded").Inc()
		e.log.Debug("race_discard", "source", id, "generation", gen, "current", st.gen)
		return
	}

	st.inFlight = false
	now := e.clock.Now()
	st.lastFetched = now

	if fetchErr != nil {
		st.failures++
		st.lastErr = fetchErr.Error()
		metrics.FetchesTotal.WithLabelValues(id, "failed").Inc()
		e.log.Warn("feed_fetch_failed", "source", id, "consecutive_failures", st.failures, "error", fetchErr)
		return
	}
	st.failures = 0
	st.lastErr = ""
	metrics.FetchesTotal.WithLabelValues(id, "ok").Inc()

	entities := e.normalize(st, records)
	diff, moves := e.store.ApplySnapshot(id, entities, now)

	changed := make(map[string]bool, len(diff.Added)+len(diff.Updated))
	for _, ent := range diff.Added {
		changed[ent.ID] = true
	}
	for _, ent := range diff.Updated {
		changed[ent.ID] = true
	}

	// every fix overrides interpolation, including unchanged fixes
	var snapped []intel.GeoEntity
	for _, ent := range entities {
		if pos, ok := e.motion.Position(id, ent.ID); ok && !changed[ent.ID] && pos != ent.Position {
			snapped = append(snapped, ent)
		}
		e.motion.Fix(id, ent)
	}
	for _, ent := range diff.Removed {
		e.motion.Forget(id, ent.ID)
	}

	created := 0
	for _, mv := range moves {
		ent, _ := e.store.Get(id, mv.ID)
		if _, ok := e.trails.React(id, ent, mv, now); ok {
			created++
		}
	}

	metrics.EntitiesCurrent.WithLabelValues(id).Set(float64(e.store.Count(id)))
	e.emitDiffLocked(id, diff, false, now)
	if len(snapped) > 0 {
		sort.Slice(snapped, func(i, j int) bool { return snapped[i].ID < snapped[j].ID })
		e.emitDiffLocked(id, intel.Diff{Updated: snapped}, true, now)
	}
	if created > 0 {
		metrics.TrailsCreatedTotal.Add(float64(created))
		e.emitTrailsLocked(now)
	}
	e.recomputeLocked(now)

	e.log.Debug("snapshot_applied",
		"source", id,
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"removed", len(diff.Removed),
		"trails", created,
	)
}

// normalize converts records to entities, dropping and logging each
// malformed record once. A repeated id is malformed; the first one wins.
func (e *Engine) normalize(st *sourceState, records []intel.Record) []intel.GeoEntity {
	out := make([]intel.GeoEntity, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, rec := range records {
		ent, err := intel.Normalize(st.Kind, rec)
		if err == nil {
			if _, dup := seen[ent.ID]; dup {
				err = fmt.Errorf("%w: duplicate id %q", intel.ErrMalformedRecord, ent.ID)
			}
		}
		if err != nil {
			metrics.MalformedRecordsTotal.WithLabelValues(st.ID).Inc()
			e.log.Warn("malformed_record", "source", st.ID, "index", i, "error", err)
			continue
		}
		seen[ent.ID] = struct{}{}
		out = append(out, ent)
	}
	return out
}

// interpolate is the motion task: one dead-reckoning step for every moving
// entity, published as interpolated updates.
func (e *Engine) interpolate(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	moved := e.motion.Advance(motion.TickInterval.Seconds())
	if len(moved) == 0 {
		return
	}
	now := e.clock.Now()

	sourceIDs := make([]string, 0, len(moved))
	for id := range moved {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	for _, sourceID := range sourceIDs {
		var diff intel.Diff
		for _, id := range moved[sourceID] {
			if ent, ok := e.store.Get(sourceID, id); ok {
				diff.Updated = append(diff.Updated, e.displayLocked(sourceID, ent))
			}
		}
		e.emitDiffLocked(sourceID, diff, true, now)
	}
}

// sweepTrails is the trail task
func (e *Engine) sweepTrails(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	expired := e.trails.Sweep(now)
	metrics.TrailsActive.Set(float64(e.trails.Len()))
	if len(expired) == 0 {
		return
	}
	metrics.TrailsExpiredTotal.Add(float64(len(expired)))
	e.emitTrailsLocked(now)
}

func (e *Engine) emitDiffLocked(sourceID string, diff intel.Diff, interpolated bool, at time.Time) {
	if diff.Empty() {
		return
	}
	if !interpolated {
		metrics.DiffEntitiesTotal.WithLabelValues(sourceID, "added").Add(float64(len(diff.Added)))
		metrics.DiffEntitiesTotal.WithLabelValues(sourceID, "updated").Add(float64(len(diff.Updated)))
		metrics.DiffEntitiesTotal.WithLabelValues(sourceID, "removed").Add(float64(len(diff.Removed)))
	}
	e.outbox.enqueue(intel.Event{
		Type:         intel.EventDiff,
		SourceID:     sourceID,
		At:           at,
		Interpolated: interpolated,
		Diff:         &diff,
	})
}

// emitTrailsLocked publishes the full set of live segments
func (e *Engine) emitTrailsLocked(at time.Time) {
	metrics.TrailsActive.Set(float64(e.trails.Len()))
	e.outbox.enqueue(intel.Event{
		Type:   intel.EventTrails,
		At:     at,
		Trails: e.trails.Active(at),
	})
}
