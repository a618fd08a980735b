// internal/service/scheduler/scheduler.go

// Package scheduler owns named, cancellable periodic tasks driven off one
// Clock. Real deployments call Run; tests call Tick after advancing a mock
// clock, so no test ever sleeps.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"geointel/internal/clock"
)

// TaskFunc is the body of a scheduled task. It runs on the scheduler's
// goroutine and must not block for long; slow work belongs in its own goroutine.
type TaskFunc func(ctx context.Context)

type task struct {
	name     string
	interval time.Duration
	next     time.Time
	fn       TaskFunc
}

// Scheduler runs periodic tasks
type Scheduler struct {
	clock clock.Clock
	log   *slog.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

// New creates an empty scheduler
func New(c clock.Clock, log *slog.Logger) *Scheduler {
	return &Scheduler{
		clock: c,
		log:   log,
		tasks: make(map[string]*task),
	}
}

// Schedule registers fn to run every interval, first due one interval from
// now. Scheduling a name that is already registered is a no-op and returns false.
func (s *Scheduler) Schedule(name string, interval time.Duration, fn TaskFunc) bool {
	if interval <= 0 {
		s.log.Error("schedule_rejected", "task", name, "interval", interval)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return false
	}
	s.tasks[name] = &task{
		name:     name,
		interval: interval,
		next:     s.clock.Now().Add(interval),
		fn:       fn,
	}
	s.log.Debug("task_scheduled", "task", name, "interval", interval)
	return true
}

// Cancel removes a task. It reports whether the task was registered.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; !exists {
		return false
	}
	delete(s.tasks, name)
	s.log.Debug("task_cancelled", "task", name)
	return true
}

// Next returns when a task is next due
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return time.Time{}, false
	}
	return t.next, true
}

// Tick runs every task that is due at the clock's current time, each at most
// once, in due-time then name order. Missed periods are skipped rather than
// replayed. It returns the number of tasks run.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !now.Before(t.next) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].next.Equal(due[j].next) {
			return due[i].next.Before(due[j].next)
		}
		return due[i].name < due[j].name
	})
	for _, t := range due {
		t.next = t.next.Add(t.interval)
		if !now.Before(t.next) {
			t.next = now.Add(t.interval)
		}
	}
	s.mu.Unlock()

	ran := 0
	for _, t := range due {
		if ctx.Err() != nil {
			break
		}
		// a task cancelled by an earlier task in this tick must not run
		if !s.current(t) {
			continue
		}
		t.fn(ctx)
		ran++
	}
	return ran
}

// Run ticks at the given resolution until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context, resolution time.Duration) {
	ticker := s.clock.NewTicker(resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Tick(ctx)
		}
	}
}

func (s *Scheduler) current(t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[t.name] == t
}
