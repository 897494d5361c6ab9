// Package parser converts between tabular trajectory/metrics records and
// core types.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OCAP2/droneview/pkg/core"
)

// Trajectory table columns in output order.
const (
	ColTime   = "time"
	ColVehID  = "veh_id"
	ColX      = "x"
	ColY      = "y"
	ColSpeed  = "speed"
	ColLaneID = "lane_id"
)

// TrajectoryHeader is the header row of a trajectory table.
var TrajectoryHeader = []string{ColTime, ColVehID, ColX, ColY, ColSpeed, ColLaneID}

// MetricsHeader is the header row of a metrics table.
var MetricsHeader = []string{"interval", "start_time", "end_time", "vehicle_count", "avg_travel_time_sec", "avg_speed"}

// required columns for aggregation; x, y and lane_id may be absent.
var requiredColumns = []string{ColTime, ColVehID, ColSpeed}

// Header maps column names to their index in a record.
type Header struct {
	index map[string]int
}

// ParseHeader reads the header record. Names are matched case-insensitively
// after trimming whitespace, quotes and a UTF-8 byte order mark.
func ParseHeader(record []string) (Header, error) {
	h := Header{index: make(map[string]int, len(record))}
	for i, name := range record {
		name = strings.ToLower(trimQuotes(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))))
		if _, dup := h.index[name]; dup {
			return Header{}, fmt.Errorf("duplicate column %q", name)
		}
		h.index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := h.index[col]; !ok {
			return Header{}, fmt.Errorf("missing required column %q", col)
		}
	}
	return h, nil
}

// Has reports whether the column is present.
func (h Header) Has(col string) bool {
	_, ok := h.index[col]
	return ok
}

func (h Header) field(record []string, col string) (string, bool) {
	i, ok := h.index[col]
	if !ok || i >= len(record) {
		return "", false
	}
	return trimQuotes(strings.TrimSpace(record[i])), true
}

// ParseObservation converts one data record. row is the zero-based data
// row index reported in a *core.DataError. The result is validated.
func (h Header) ParseObservation(row int, record []string) (core.Observation, error) {
	var o core.Observation

	vehID, ok := h.field(record, ColVehID)
	if !ok {
		return o, &core.DataError{Row: row, Field: ColVehID, Err: errMissingField}
	}
	o.VehicleID = vehID

	var err error
	if o.Time, err = h.requiredFloat(row, record, ColTime); err != nil {
		return o, err
	}
	if o.Speed, err = h.requiredFloat(row, record, ColSpeed); err != nil {
		return o, err
	}
	if o.X, err = h.optionalFloat(row, record, ColX); err != nil {
		return o, err
	}
	if o.Y, err = h.optionalFloat(row, record, ColY); err != nil {
		return o, err
	}
	o.LaneID, _ = h.field(record, ColLaneID)

	if err := o.Validate(row); err != nil {
		return o, err
	}
	return o, nil
}

func (h Header) requiredFloat(row int, record []string, col string) (float64, error) {
	s, ok := h.field(record, col)
	if !ok || s == "" {
		return 0, &core.DataError{Row: row, Field: col, Err: errMissingField}
	}
	return parseFloat(row, col, s)
}

func (h Header) optionalFloat(row int, record []string, col string) (float64, error) {
	s, ok := h.field(record, col)
	if !ok || s == "" {
		return 0, nil
	}
	return parseFloat(row, col, s)
}

func parseFloat(row int, col, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &core.DataError{Row: row, Field: col, Value: s, Err: errNotNumber}
	}
	return f, nil
}

// FormatObservation renders o in TrajectoryHeader column order.
func FormatObservation(o core.Observation) []string {
	return []string{
		strconv.FormatFloat(o.Time, 'f', -1, 64),
		o.VehicleID,
		strconv.FormatFloat(o.X, 'f', -1, 64),
		strconv.FormatFloat(o.Y, 'f', -1, 64),
		strconv.FormatFloat(o.Speed, 'f', -1, 64),
		o.LaneID,
	}
}

// FormatMetrics renders m rounded to 2 decimals in MetricsHeader order.
func FormatMetrics(m core.IntervalMetrics) []string {
	r := m.Rounded()
	return []string{
		r.Interval,
		strconv.Itoa(r.Start),
		strconv.Itoa(r.End),
		strconv.Itoa(r.VehicleCount),
		strconv.FormatFloat(r.AvgTravelTime, 'f', -1, 64),
		strconv.FormatFloat(r.AvgSpeed, 'f', -1, 64),
	}
}

// trimQuotes removes one pair of surrounding double quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
