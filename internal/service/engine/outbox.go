// internal/service/engine/outbox.go

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"geointel/internal/domain/intel"
	"geointel/internal/metrics"
)

const defaultPublishTimeout = 5 * time.Second

// outbox delivers events to the sink in enqueue order from one goroutine.
// The queue is unbounded so state changes never block on a slow sink.
type outbox struct {
	sink    intel.Sink
	timeout time.Duration
	log     *slog.Logger
	notify  chan struct{}

	mu    sync.Mutex
	queue []intel.Event

	// held for a whole batch so concurrent flushes cannot reorder events
	sendMu sync.Mutex
}

func newOutbox(sink intel.Sink, timeout time.Duration, log *slog.Logger) *outbox {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &outbox{
		sink:    sink,
		timeout: timeout,
		log:     log,
		notify:  make(chan struct{}, 1),
	}
}

// enqueue stamps and queues an event. It never blocks.
func (o *outbox) enqueue(ev intel.Event) {
	ev.ID = uuid.NewString()

	o.mu.Lock()
	o.queue = append(o.queue, ev)
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// run dispatches queued events until ctx is cancelled
func (o *outbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.notify:
			o.flush(context.Background())
		}
	}
}

// flush delivers every queued event, including ones enqueued meanwhile
func (o *outbox) flush(ctx context.Context) error {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	for {
		o.mu.Lock()
		batch := o.queue
		o.queue = nil
		o.mu.Unlock()

		if len(batch) == 0 {
			return nil
		}

		for i, ev := range batch {
			if err := ctx.Err(); err != nil {
				o.requeue(batch[i:])
				return err
			}
			o.deliver(ev)
		}
	}
}

func (o *outbox) requeue(events []intel.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(append([]intel.Event{}, events...), o.queue...)
}

func (o *outbox) deliver(ev intel.Event) {
	if o.sink == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if err := o.sink.Publish(ctx, ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "failed").Inc()
		o.log.Warn("event_publish_failed", "type", ev.Type, "source", ev.SourceID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type), "ok").Inc()
}

// pending returns the number of queued events
func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}
