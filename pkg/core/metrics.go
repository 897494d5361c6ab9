// pkg/core/metrics.go
package core

import (
	"fmt"
	"math"
)

// TimeBin is the half-open interval [Start, End) in whole seconds.
type TimeBin struct {
	Start int
	End   int
}

// Label renders the bin as "start-end".
func (b TimeBin) Label() string {
	return fmt.Sprintf("%d-%d", b.Start, b.End)
}

// Contains reports whether the bin key falls inside the bin.
func (b TimeBin) Contains(key int) bool {
	return key >= b.Start && key < b.End
}

// IntervalMetrics is one aggregated row. Values are kept at full
// precision; use Rounded before presenting them.
type IntervalMetrics struct {
	Interval      string  `json:"interval"`
	Start         int     `json:"startTime"`
	End           int     `json:"endTime"`
	VehicleCount  int     `json:"vehicleCount"`
	AvgTravelTime float64 `json:"avgTravelTimeSec"`
	AvgSpeed      float64 `json:"avgSpeed"`
}

// Bin returns the time bin the row describes.
func (m IntervalMetrics) Bin() TimeBin {
	return TimeBin{Start: m.Start, End: m.End}
}

// Rounded returns a copy with averages rounded to 2 decimals.
func (m IntervalMetrics) Rounded() IntervalMetrics {
	m.AvgSpeed = Round2(m.AvgSpeed)
	m.AvgTravelTime = Round2(m.AvgTravelTime)
	return m
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
