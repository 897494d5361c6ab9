// Package recorder keeps the append-only trajectory log of a run and
// forwards every accepted observation to the configured sinks.
package recorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/OCAP2/droneview/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Sink receives each observation after it has been appended to the log.
// storage.Backend satisfies it.
type Sink interface {
	RecordObservation(o *core.Observation) error
}

// Recorder is the trajectory log. Appends are serialized; the log is
// never re-sorted, deduplicated or truncated during a run.
type Recorder struct {
	mu    sync.Mutex
	log   []core.Observation
	sinks []Sink

	recorded metric.Int64Counter
	failed   metric.Int64Counter
}

// New creates a recorder that forwards to sinks. meter may be nil.
func New(meter metric.Meter, sinks ...Sink) (*Recorder, error) {
	r := &Recorder{sinks: sinks}
	if meter == nil {
		return r, nil
	}

	var err error
	r.recorded, err = meter.Int64Counter("droneview.recorder.observations",
		metric.WithDescription("Observations appended to the trajectory log"),
	)
	if err != nil {
		return nil, fmt.Errorf("create observations counter: %w", err)
	}
	r.failed, err = meter.Int64Counter("droneview.recorder.sink_errors",
		metric.WithDescription("Observations a sink failed to accept"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sink errors counter: %w", err)
	}
	return r, nil
}

// Record appends o and forwards it to every sink. Sinks see observations
// in log order. The log entry is kept even if a sink fails; the first sink
// error is returned.
func (r *Recorder) Record(ctx context.Context, o core.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, o)

	if r.recorded != nil {
		r.recorded.Add(ctx, 1)
	}

	var firstErr error
	for i, s := range r.sinks {
		if err := s.RecordObservation(&o); err != nil {
			if r.failed != nil {
				r.failed.Add(ctx, 1, metric.WithAttributes(attribute.Int("sink", i)))
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("sink %d: %w", i, err)
			}
		}
	}
	return firstErr
}

// Log returns a copy of the trajectory log in arrival order.
func (r *Recorder) Log() []core.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Observation, len(r.log))
	copy(out, r.log)
	return out
}

// Len returns the number of recorded observations.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

// Reset empties the log for a new run.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}
