// internal/domain/intel/engine.go

package intel

import (
	"context"
	"time"
)

// Fetcher is the inbound feed collaborator. It returns already-parsed records
// and relies on its own timeout.
type Fetcher interface {
	FetchFeed(ctx context.Context, kind Kind) ([]Record, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, kind Kind) ([]Record, error)

// FetchFeed calls f
func (f FetcherFunc) FetchFeed(ctx context.Context, kind Kind) ([]Record, error) {
	return f(ctx, kind)
}

// EventType distinguishes outbound events
type EventType string

// Event types
const (
	EventDiff    EventType = "diff"
	EventMetrics EventType = "metrics"
	EventTrails  EventType = "trails"
)

// Event is one message on the outbound stream to the render layer
type Event struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	SourceID     string         `json:"source_id,omitempty"`
	At           time.Time      `json:"at"`
	Interpolated bool           `json:"interpolated,omitempty"`
	Diff         *Diff          `json:"diff,omitempty"`
	Metrics      *Metrics       `json:"metrics,omitempty"`
	Trails       []TrailSegment `json:"trails,omitempty"`
}

// Sink consumes outbound events. It owns no engine state; any render-side
// index it keeps is reconciled purely from diffs.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Engine is the read/control surface the HTTP layer depends on
type Engine interface {
	// EnableSource starts polling a source
	EnableSource(id string) error

	// DisableSource stops polling and clears the source's entities
	DisableSource(id string) error

	// Sources returns the status of every source
	Sources() []SourceStatus

	// Entities returns displayed (possibly interpolated) entities of a kind, or all when kind is ""
	Entities(kind Kind) []GeoEntity

	// Fixes returns authoritative entities of a kind, or all when kind is ""
	Fixes(kind Kind) []GeoEntity

	// Filtered returns displayed entities of a kind that pass the current criteria
	Filtered(kind Kind) []GeoEntity

	// Trails returns live trail segments
	Trails() []TrailSegment

	// Criteria returns the current filter criteria
	Criteria() Criteria

	// SetCriteria replaces the filter criteria
	SetCriteria(c Criteria) error

	// Metrics returns the current analytics snapshot
	Metrics() Metrics

	// Tooltip returns the structured hover payload for an entity
	Tooltip(sourceID, entityID string) (Tooltip, bool)
}
