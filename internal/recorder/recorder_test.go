package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type sliceSink struct {
	mu  sync.Mutex
	got []core.Observation
	err error
}

func (s *sliceSink) RecordObservation(o *core.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, *o)
	return s.err
}

func TestRecord_KeepsArrivalOrder(t *testing.T) {
	sink := &sliceSink{}
	r, err := New(nil, sink)
	require.NoError(t, err)

	in := []core.Observation{
		{Time: 2, VehicleID: "b"},
		{Time: 1, VehicleID: "a"},
		{Time: 2, VehicleID: "b"},
	}
	for _, o := range in {
		require.NoError(t, r.Record(context.Background(), o))
	}

	assert.Equal(t, in, r.Log(), "no sorting or deduplication")
	assert.Equal(t, in, sink.got)
	assert.Equal(t, 3, r.Len())
}

func TestRecord_SinkErrorKeepsEntry(t *testing.T) {
	ok := &sliceSink{}
	bad := &sliceSink{err: errors.New("disk full")}
	r, err := New(noop.Meter{}, bad, ok)
	require.NoError(t, err)

	err = r.Record(context.Background(), core.Observation{VehicleID: "v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, r.Len())
	assert.Len(t, ok.got, 1, "later sinks still receive the observation")
}

func TestRecord_ConcurrentAppends(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = r.Record(context.Background(), core.Observation{VehicleID: fmt.Sprintf("g%d", g), Time: float64(i)})
			}
		}(g)
	}
	wg.Wait()

	log := r.Log()
	require.Len(t, log, 800)

	// each writer's own entries stay in its submission order
	last := map[string]float64{}
	for _, o := range log {
		if prev, seen := last[o.VehicleID]; seen {
			assert.Greater(t, o.Time, prev)
		}
		last[o.VehicleID] = o.Time
	}
}

func TestLog_ReturnsCopy(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, r.Record(context.Background(), core.Observation{VehicleID: "v1"}))

	log := r.Log()
	log[0].VehicleID = "mutated"
	assert.Equal(t, "v1", r.Log()[0].VehicleID)

	r.Reset()
	assert.Zero(t, r.Len())
}
