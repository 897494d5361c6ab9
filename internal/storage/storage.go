// internal/storage/storage.go
package storage

import "github.com/OCAP2/droneview/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Backends are sinks for a recording; none of them is queried back by the
// pipeline.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Recording
	RecordObservation(o *core.Observation) error
	RecordMetrics(m *core.IntervalMetrics) error
}

// Exporter is an optional interface for backends that write files when a
// run ends.
type Exporter interface {
	ExportedFiles() []string
}
