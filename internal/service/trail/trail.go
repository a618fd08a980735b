// internal/service/trail/trail.go

// Package trail keeps short-lived motion segments in an expiry queue ordered
// by expiresAt. Expiry happens only when Sweep is called, so it is fully
// driven by the engine clock.
package trail

import (
	"container/heap"
	"math"
	"sort"
	"time"

	"geointel/internal/domain/intel"
)

// Trail creation bounds and lifetime. The displacement window filters both
// no-op churn and implausible jumps such as a feed reusing an id across
// hemispheres.
const (
	DefaultTTL      = 20 * time.Second
	MinDisplacement = 0.01
	MaxDisplacement = 10.0
	SweepInterval   = time.Second
)

// Displacement is the Manhattan distance in degrees between two fixes
func Displacement(from, to intel.Position) float64 {
	return math.Abs(to.Lat-from.Lat) + math.Abs(to.Lng-from.Lng)
}

type item struct {
	seg   intel.TrailSegment
	seq   uint64
	index int
}

type expiryQueue []*item

func (q expiryQueue) Len() int { return len(q) }

func (q expiryQueue) Less(i, j int) bool {
	ei, ej := q[i].seg.ExpiresAt(), q[j].seg.ExpiresAt()
	if !ei.Equal(ej) {
		return ei.Before(ej)
	}
	return q[i].seq < q[j].seq
}

func (q expiryQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expiryQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

// Manager owns every trail segment. Not safe for concurrent use.
type Manager struct {
	ttl   time.Duration
	queue expiryQueue
	seq   uint64
}

// New creates a manager with the given segment lifetime
func New(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{ttl: ttl}
}

// React creates a segment for an updated motion-bearing entity when its fix
// moved strictly between MinDisplacement and MaxDisplacement degrees.
func (m *Manager) React(sourceID string, e intel.GeoEntity, mv intel.Move, now time.Time) (intel.TrailSegment, bool) {
	if e.Motion == nil {
		return intel.TrailSegment{}, false
	}
	d := Displacement(mv.From, mv.To)
	if d <= MinDisplacement || d >= MaxDisplacement {
		return intel.TrailSegment{}, false
	}

	seg := intel.TrailSegment{
		SourceID:  sourceID,
		EntityID:  mv.ID,
		From:      mv.From,
		To:        mv.To,
		CreatedAt: now,
		TTL:       m.ttl,
	}
	m.seq++
	heap.Push(&m.queue, &item{seg: seg, seq: m.seq})
	return seg, true
}

// Sweep removes and returns every segment whose expiry has been reached
func (m *Manager) Sweep(now time.Time) []intel.TrailSegment {
	var expired []intel.TrailSegment
	for m.queue.Len() > 0 && !now.Before(m.queue[0].seg.ExpiresAt()) {
		it := heap.Pop(&m.queue).(*item)
		expired = append(expired, it.seg)
	}
	return expired
}

// DropSource removes every segment of a source regardless of expiry
func (m *Manager) DropSource(sourceID string) int {
	kept := m.queue[:0]
	dropped := 0
	for _, it := range m.queue {
		if it.seg.SourceID == sourceID {
			dropped++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(m.queue); i++ {
		m.queue[i] = nil
	}
	m.queue = kept
	for i, it := range m.queue {
		it.index = i
	}
	heap.Init(&m.queue)
	return dropped
}

// Active returns the segments alive at now, oldest first. Segments past
// expiry are excluded even if no sweep has run yet.
func (m *Manager) Active(now time.Time) []intel.TrailSegment {
	items := make([]*item, 0, len(m.queue))
	for _, it := range m.queue {
		if now.Before(it.seg.ExpiresAt()) {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })

	out := make([]intel.TrailSegment, len(items))
	for i, it := range items {
		out[i] = it.seg
	}
	return out
}

// Len returns the number of held segments, expired or not
func (m *Manager) Len() int {
	return m.queue.Len()
}
