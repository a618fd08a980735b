// internal/adapter/feeds/nats.go

package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"geointel/internal/domain/intel"
)

// Requester is the request/reply half of *nats.Conn
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

var _ Requester = (*nats.Conn)(nil)

// FetchRequest is the payload sent to a feed worker
type FetchRequest struct {
	Kind        intel.Kind `json:"kind"`
	RequestedAt time.Time  `json:"requested_at"`
}

// FetchReply is what a feed worker answers with
type FetchReply struct {
	Records []intel.Record `json:"records"`
	Error   string         `json:"error,omitempty"`
}

// NATSFetcher asks feed workers for records over NATS request/reply on
// <topic>.<kind>.fetch. Workers do the provider HTTP calls and parsing.
type NATSFetcher struct {
	conn    Requester
	topic   string
	timeout time.Duration
	now     func() time.Time
}

// NewNATSFetcher creates a NATS fetcher. timeout bounds each request.
func NewNATSFetcher(conn Requester, topic string, timeout time.Duration, now func() time.Time) *NATSFetcher {
	return &NATSFetcher{
		conn:    conn,
		topic:   topic,
		timeout: timeout,
		now:     now,
	}
}

// Subject returns the request subject for a kind
func (f *NATSFetcher) Subject(kind intel.Kind) string {
	return fmt.Sprintf("%s.%s.fetch", f.topic, kind)
}

// FetchFeed implements intel.Fetcher
func (f *NATSFetcher) FetchFeed(ctx context.Context, kind intel.Kind) ([]intel.Record, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(FetchRequest{Kind: kind, RequestedAt: f.now()})
	if err != nil {
		return nil, fmt.Errorf("error marshaling fetch request: %w", err)
	}

	msg, err := f.conn.RequestWithContext(ctx, f.Subject(kind), payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, fmt.Errorf("no feed worker for %s: %w", kind, err)
		}
		return nil, fmt.Errorf("error requesting %s feed: %w", kind, err)
	}

	var reply FetchReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, fmt.Errorf("error unmarshaling %s feed reply: %w", kind, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%s feed worker: %s", kind, reply.Error)
	}

	return reply.Records, nil
}
