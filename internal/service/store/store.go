// internal/service/store/store.go

// Package store holds the authoritative per-source entity snapshots.
//
// A Store is owned by a single engine and is not safe for concurrent use;
// the engine serializes access.
package store

import (
	"sort"
	"time"

	"geointel/internal/domain/intel"
)

type entry struct {
	entity  intel.GeoEntity
	fixedAt time.Time
}

// Store maps source id -> entity id -> last authoritative fix
type Store struct {
	sources map[string]map[string]entry
}

// New creates an empty store
func New() *Store {
	return &Store{sources: make(map[string]map[string]entry)}
}

// ApplySnapshot replaces the snapshot of a source and returns the diff against
// the previous one. Updated means the id persisted and some field differs.
// For every updated entity the previous fix is reported as a Move, captured
// before it is overwritten. If an id repeats within entities, the first wins.
func (s *Store) ApplySnapshot(sourceID string, entities []intel.GeoEntity, at time.Time) (intel.Diff, []intel.Move) {
	prev := s.sources[sourceID]
	next := make(map[string]entry, len(entities))

	var diff intel.Diff
	var moves []intel.Move

	for _, e := range entities {
		if _, dup := next[e.ID]; dup {
			continue
		}
		next[e.ID] = entry{entity: e, fixedAt: at}

		old, existed := prev[e.ID]
		switch {
		case !existed:
			diff.Added = append(diff.Added, e)
		case !old.entity.Equal(e):
			diff.Updated = append(diff.Updated, e)
			moves = append(moves, intel.Move{ID: e.ID, From: old.entity.Position, To: e.Position})
		}
	}

	for id, old := range prev {
		if _, kept := next[id]; !kept {
			diff.Removed = append(diff.Removed, old.entity)
		}
	}

	s.sources[sourceID] = next

	sortByID(diff.Added)
	sortByID(diff.Updated)
	sortByID(diff.Removed)
	sort.Slice(moves, func(i, j int) bool { return moves[i].ID < moves[j].ID })

	return diff, moves
}

// RemoveSource clears a source and returns a removal diff for all its entities
func (s *Store) RemoveSource(sourceID string) intel.Diff {
	prev := s.sources[sourceID]
	delete(s.sources, sourceID)

	var diff intel.Diff
	for _, e := range prev {
		diff.Removed = append(diff.Removed, e.entity)
	}
	sortByID(diff.Removed)
	return diff
}

// GetAll returns the authoritative entities of a kind, or every entity when
// kind is empty, ordered by source then id
func (s *Store) GetAll(kind intel.Kind) []intel.GeoEntity {
	out := []intel.GeoEntity{}
	for _, sourceID := range s.SourceIDs() {
		out = append(out, s.Source(sourceID, kind)...)
	}
	return out
}

// Source returns the entities of one source, optionally restricted to a kind
func (s *Store) Source(sourceID string, kind intel.Kind) []intel.GeoEntity {
	snap := s.sources[sourceID]
	out := make([]intel.GeoEntity, 0, len(snap))
	for _, e := range snap {
		if kind == "" || e.entity.Kind == kind {
			out = append(out, e.entity)
		}
	}
	sortByID(out)
	return out
}

// Get returns one entity
func (s *Store) Get(sourceID, id string) (intel.GeoEntity, bool) {
	e, ok := s.sources[sourceID][id]
	return e.entity, ok
}

// Fix returns the last authoritative fix of an entity
func (s *Store) Fix(sourceID, id string) (intel.Fix, bool) {
	e, ok := s.sources[sourceID][id]
	if !ok {
		return intel.Fix{}, false
	}
	return intel.Fix{Position: e.entity.Position, At: e.fixedAt}, true
}

// Count returns the number of entities held for a source
func (s *Store) Count(sourceID string) int {
	return len(s.sources[sourceID])
}

// SourceIDs returns the sources that currently hold a snapshot, sorted
func (s *Store) SourceIDs() []string {
	ids := make([]string, 0, len(s.sources))
	for id := range s.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortByID(es []intel.GeoEntity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}
