// internal/adapter/sink/nats.go

package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"geointel/internal/domain/intel"
)

// Publisher is the publish half of *nats.Conn
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSSink publishes events as JSON on the events topic:
// <topic>.<source>.diff, <topic>.metrics and <topic>.trails
type NATSSink struct {
	conn  Publisher
	topic string
}

// NewNATSSink creates a NATS sink
func NewNATSSink(conn Publisher, topic string) *NATSSink {
	return &NATSSink{conn: conn, topic: topic}
}

// Subject returns the subject an event is published on
func (s *NATSSink) Subject(ev intel.Event) string {
	if ev.Type == intel.EventDiff {
		return fmt.Sprintf("%s.%s.diff", s.topic, ev.SourceID)
	}
	return fmt.Sprintf("%s.%s", s.topic, ev.Type)
}

// Publish implements intel.Sink
func (s *NATSSink) Publish(ctx context.Context, ev intel.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("error marshaling event: %w", err)
	}

	if err := s.conn.Publish(s.Subject(ev), data); err != nil {
		return fmt.Errorf("error publishing event: %w", err)
	}
	return nil
}
