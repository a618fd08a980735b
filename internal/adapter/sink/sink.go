// internal/adapter/sink/sink.go

// Package sink delivers engine events to the render side
package sink

import (
	"context"
	"errors"

	"geointel/internal/domain/intel"
)

// Multi fans an event out to several sinks. Every sink is attempted; the
// errors are joined.
type Multi []intel.Sink

// Publish implements intel.Sink
func (m Multi) Publish(ctx context.Context, ev intel.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
