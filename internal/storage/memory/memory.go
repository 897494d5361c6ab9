// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/pkg/core"
)

// Backend keeps a run in memory and exports it when the run ends.
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	observations []core.Observation
	metrics      []core.IntervalMetrics

	exported []string
	mu       sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run and drops anything held from the
// previous one.
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.observations = nil
	b.metrics = nil
	b.exported = nil
	return nil
}

// EndRun exports the run.
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run started")
	}
	return b.export()
}

// RecordObservation stores a copy of o.
func (b *Backend) RecordObservation(o *core.Observation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observations = append(b.observations, *o)
	return nil
}

// RecordMetrics stores a copy of m.
func (b *Backend) RecordMetrics(m *core.IntervalMetrics) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append(b.metrics, *m)
	return nil
}

// Observations returns a copy of the recorded observations.
func (b *Backend) Observations() []core.Observation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Observation(nil), b.observations...)
}

// Metrics returns a copy of the recorded metrics rows.
func (b *Backend) Metrics() []core.IntervalMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.IntervalMetrics(nil), b.metrics...)
}

// ExportedFiles returns the files written by the last EndRun.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.exported...)
}
