// pkg/core/vehicle.go
package core

import (
	"math"
	"strconv"
)

// VehicleState is what the simulator reports for one vehicle in one step.
type VehicleState struct {
	VehicleID string
	X         float64
	Y         float64
	Speed     float64
	LaneID    string
}

// Snapshot is the full set of vehicles active at one simulation step.
type Snapshot struct {
	Step     int
	Time     float64
	Vehicles []VehicleState
}

// Observation is one recorded sample of one vehicle. Observations are
// immutable once they reach the trajectory log.
type Observation struct {
	Time      float64 `json:"time"`
	VehicleID string  `json:"vehId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Speed     float64 `json:"speed"`
	LaneID    string  `json:"laneId"`
}

// ObservationAt builds the observation of v at simulation time t.
func ObservationAt(t float64, v VehicleState) Observation {
	return Observation{
		Time:      t,
		VehicleID: v.VehicleID,
		X:         v.X,
		Y:         v.Y,
		Speed:     v.Speed,
		LaneID:    v.LaneID,
	}
}

// MaxTime is the largest accepted observation time in seconds. Bin keys
// and bin bounds stay within int arithmetic below it.
const MaxTime = math.MaxInt32

// Validate checks the observation against the value domain used by the
// aggregator. row is reported in the returned *DataError.
func (o Observation) Validate(row int) error {
	switch {
	case o.VehicleID == "":
		return &DataError{Row: row, Field: "veh_id", Value: "", Err: errEmptyVehicle}
	case math.IsNaN(o.Time) || math.IsInf(o.Time, 0):
		return &DataError{Row: row, Field: "time", Value: formatFloat(o.Time), Err: errNotFinite}
	case o.Time < 0:
		return &DataError{Row: row, Field: "time", Value: formatFloat(o.Time), Err: errNegative}
	case o.Time > MaxTime:
		return &DataError{Row: row, Field: "time", Value: formatFloat(o.Time), Err: errTooLarge}
	case math.IsNaN(o.Speed) || math.IsInf(o.Speed, 0):
		return &DataError{Row: row, Field: "speed", Value: formatFloat(o.Speed), Err: errNotFinite}
	case o.Speed < 0:
		return &DataError{Row: row, Field: "speed", Value: formatFloat(o.Speed), Err: errNegative}
	case math.IsNaN(o.X) || math.IsInf(o.X, 0):
		return &DataError{Row: row, Field: "x", Value: formatFloat(o.X), Err: errNotFinite}
	case math.IsNaN(o.Y) || math.IsInf(o.Y, 0):
		return &DataError{Row: row, Field: "y", Value: formatFloat(o.Y), Err: errNotFinite}
	}
	return nil
}

// TimeBinKey truncates the observation time toward zero to whole seconds.
func (o Observation) TimeBinKey() int {
	return int(o.Time)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
