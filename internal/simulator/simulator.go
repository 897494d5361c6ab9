// Package simulator defines the snapshot source consumed by the runner
// and a replay source backed by a recorded trajectory table.
package simulator

import (
	"context"
	"fmt"
	"sort"

	"github.com/OCAP2/droneview/internal/table"
	"github.com/OCAP2/droneview/pkg/core"
)

// Source yields one snapshot per simulation step. ok is false when the
// simulation has ended.
type Source interface {
	Next(ctx context.Context) (snap core.Snapshot, ok bool, err error)
	Close() error
}

// Replay plays back a trajectory log, one snapshot per distinct time.
type Replay struct {
	steps []core.Snapshot
	pos   int
}

// NewReplay groups log by time. Vehicles within a step keep log order.
func NewReplay(log []core.Observation) *Replay {
	sorted := make([]core.Observation, len(log))
	copy(sorted, log)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var steps []core.Snapshot
	for _, o := range sorted {
		if len(steps) == 0 || steps[len(steps)-1].Time != o.Time {
			steps = append(steps, core.Snapshot{Step: len(steps), Time: o.Time})
		}
		last := &steps[len(steps)-1]
		last.Vehicles = append(last.Vehicles, core.VehicleState{
			VehicleID: o.VehicleID,
			X:         o.X,
			Y:         o.Y,
			Speed:     o.Speed,
			LaneID:    o.LaneID,
		})
	}
	return &Replay{steps: steps}
}

// OpenReplay reads a .csv or .xlsx trajectory table.
func OpenReplay(path string) (*Replay, error) {
	log, err := table.ReadTrajectories(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplay(log), nil
}

// Len returns the number of steps.
func (r *Replay) Len() int {
	return len(r.steps)
}

func (r *Replay) Next(ctx context.Context) (core.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, false, err
	}
	if r.pos >= len(r.steps) {
		return core.Snapshot{}, false, nil
	}
	s := r.steps[r.pos]
	r.pos++
	return s, true, nil
}

func (r *Replay) Close() error {
	return nil
}
