// internal/clock/clock.go

// Package clock is the single time source for the engine. Every schedule,
// fix timestamp and trail expiry is read from a Clock so tests can drive the
// whole system in virtual time.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time and periodic ticks
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// NewTicker returns a ticker delivering ticks every d
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on a channel until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real implements Clock with the time package
type Real struct{}

// Now returns time.Now()
func (Real) Now() time.Time {
	return time.Now()
}

// NewTicker wraps time.NewTicker
func (Real) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Mock is a manually advanced clock for tests
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMock creates a Mock clock set to t
func NewMock(t time.Time) *Mock {
	return &Mock{now: t}
}

// Now returns the mocked time
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t without firing tickers
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and fires every ticker that became due.
// A ticker channel holds at most one pending tick, like time.Ticker. Stopped
// tickers are dropped.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	live := m.tickers[:0]
	for _, t := range m.tickers {
		if !t.isStopped() {
			live = append(live, t)
		}
	}
	clear(m.tickers[len(live):])
	m.tickers = live
	tickers := make([]*mockTicker, len(live))
	copy(tickers, live)
	m.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

// NewTicker creates a ticker that fires on Advance
func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTicker{
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     m.now.Add(d),
	}
	m.tickers = append(m.tickers, t)
	return t
}

type mockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *mockTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *mockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.next) {
		return
	}
	for !now.Before(t.next) {
		t.next = t.next.Add(t.interval)
	}
	select {
	case t.ch <- now:
	default:
	}
}
