package convert

import (
	"encoding/json"

	"github.com/OCAP2/droneview/internal/model"
	"github.com/OCAP2/droneview/pkg/core"
)

// RunToCore converts a GORM model.Run back to a core.Run.
func RunToCore(r model.Run) core.Run {
	var camera core.CameraSettings
	if len(r.Camera) > 0 {
		_ = json.Unmarshal(r.Camera, &camera)
	}
	return core.Run{
		ID:         r.RunID,
		Name:       r.Name,
		Source:     r.Source,
		StartTime:  r.StartTime,
		StepLength: r.StepLength,
		BinWidth:   r.BinWidth,
		Camera:     camera,
	}
}

// ObservationToCore converts a GORM model.Observation to a core.Observation.
// An empty position yields the origin.
func ObservationToCore(o model.Observation) core.Observation {
	out := core.Observation{
		Time:      o.Time,
		VehicleID: o.VehicleID,
		Speed:     o.Speed,
		LaneID:    o.LaneID,
	}
	if c, ok := o.Position.Coordinates(); ok {
		out.X = c.XY.X
		out.Y = c.XY.Y
	}
	return out
}

// IntervalMetricToCore converts a GORM model.IntervalMetric to core.
func IntervalMetricToCore(m model.IntervalMetric) core.IntervalMetrics {
	return core.IntervalMetrics{
		Interval:      m.Interval,
		Start:         m.StartTime,
		End:           m.EndTime,
		VehicleCount:  m.VehicleCount,
		AvgTravelTime: m.AvgTravelTime,
		AvgSpeed:      m.AvgSpeed,
	}
}
