// internal/adapter/feeds/feeds.go

// Package feeds provides the inbound feed collaborators: a per-kind router,
// a NATS request/reply fetcher and a static fetcher.
package feeds

import (
	"context"
	"fmt"
	"sync"

	"geointel/internal/domain/intel"
)

// Router dispatches fetches to the fetcher registered for each kind
type Router struct {
	mu     sync.RWMutex
	routes map[intel.Kind]intel.Fetcher
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{routes: make(map[intel.Kind]intel.Fetcher)}
}

// Handle registers f for the given kinds, replacing earlier registrations
func (r *Router) Handle(f intel.Fetcher, kinds ...intel.Kind) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range kinds {
		r.routes[k] = f
	}
	return r
}

// FetchFeed implements intel.Fetcher
func (r *Router) FetchFeed(ctx context.Context, kind intel.Kind) ([]intel.Record, error) {
	r.mu.RLock()
	f, ok := r.routes[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no feed registered for %q", kind)
	}
	return f.FetchFeed(ctx, kind)
}

// Static serves fixed records per kind. Useful for demos and tests.
type Static struct {
	mu      sync.RWMutex
	records map[intel.Kind][]intel.Record
}

// NewStatic creates a static fetcher
func NewStatic(records map[intel.Kind][]intel.Record) *Static {
	s := &Static{records: make(map[intel.Kind][]intel.Record)}
	for k, v := range records {
		s.Set(k, v)
	}
	return s
}

// Set replaces the records served for a kind
func (s *Static) Set(kind intel.Kind, records []intel.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[kind] = append([]intel.Record(nil), records...)
}

// FetchFeed implements intel.Fetcher
func (s *Static) FetchFeed(ctx context.Context, kind intel.Kind) ([]intel.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]intel.Record(nil), s.records[kind]...), nil
}
