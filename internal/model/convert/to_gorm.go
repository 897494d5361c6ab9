// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/droneview/internal/model"
	"github.com/OCAP2/droneview/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// xyToPoint converts simulator coordinates to a geom.Point
func xyToPoint(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	camera, err := json.Marshal(r.Camera)
	if err != nil {
		camera = []byte("{}")
	}
	return model.Run{
		RunID:      r.ID,
		Name:       r.Name,
		Source:     r.Source,
		StartTime:  r.StartTime,
		StepLength: r.StepLength,
		BinWidth:   r.BinWidth,
		Camera:     datatypes.JSON(camera),
	}
}

// CoreToObservation converts a core.Observation to a GORM model.Observation
// belonging to the run with primary key runID.
func CoreToObservation(runID uint, o core.Observation) model.Observation {
	return model.Observation{
		RunID:     runID,
		Time:      o.Time,
		VehicleID: o.VehicleID,
		Position:  xyToPoint(o.X, o.Y),
		Speed:     o.Speed,
		LaneID:    o.LaneID,
	}
}

// CoreToIntervalMetric converts core.IntervalMetrics at full precision.
func CoreToIntervalMetric(runID uint, m core.IntervalMetrics) model.IntervalMetric {
	return model.IntervalMetric{
		RunID:         runID,
		Interval:      m.Interval,
		StartTime:     m.Start,
		EndTime:       m.End,
		VehicleCount:  m.VehicleCount,
		AvgTravelTime: m.AvgTravelTime,
		AvgSpeed:      m.AvgSpeed,
	}
}
