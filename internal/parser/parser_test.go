package parser

import (
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		record  []string
		wantErr string
	}{
		{"full", TrajectoryHeader, ""},
		{"reordered with bom", []string{"\ufeffspeed", " VEH_ID ", "Time"}, ""},
		{"quoted", []string{`"time"`, `"veh_id"`, `"speed"`}, ""},
		{"missing speed", []string{"time", "veh_id", "x"}, `missing required column "speed"`},
		{"duplicate", []string{"time", "veh_id", "speed", "time"}, `duplicate column "time"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHeader(tt.record)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseObservation(t *testing.T) {
	h, err := ParseHeader(TrajectoryHeader)
	require.NoError(t, err)

	o, err := h.ParseObservation(0, []string{"12.0", "veh_3", "288.84", "187.33", "13.9", "E1_0"})
	require.NoError(t, err)
	assert.Equal(t, core.Observation{Time: 12, VehicleID: "veh_3", X: 288.84, Y: 187.33, Speed: 13.9, LaneID: "E1_0"}, o)
}

func TestParseObservation_OptionalColumns(t *testing.T) {
	h, err := ParseHeader([]string{"veh_id", "time", "speed"})
	require.NoError(t, err)
	assert.False(t, h.Has(ColX))

	o, err := h.ParseObservation(4, []string{"v1", "3", "7.5"})
	require.NoError(t, err)
	assert.Equal(t, core.Observation{Time: 3, VehicleID: "v1", Speed: 7.5}, o)
}

func TestParseObservation_Errors(t *testing.T) {
	h, err := ParseHeader(TrajectoryHeader)
	require.NoError(t, err)

	tests := []struct {
		name   string
		record []string
		field  string
	}{
		{"bad time", []string{"abc", "v1", "0", "0", "1", ""}, ColTime},
		{"empty speed", []string{"1", "v1", "0", "0", "", ""}, ColSpeed},
		{"bad x", []string{"1", "v1", "x?", "0", "1", ""}, ColX},
		{"negative time", []string{"-2", "v1", "0", "0", "1", ""}, ColTime},
		{"short record", []string{"1"}, ColVehID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ParseObservation(9, tt.record)
			var de *core.DataError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, 9, de.Row)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestFormatObservation(t *testing.T) {
	o := core.Observation{Time: 5, VehicleID: "v1", X: 1.25, Y: -3, Speed: 12.5, LaneID: "L"}
	assert.Equal(t, []string{"5", "v1", "1.25", "-3", "12.5", "L"}, FormatObservation(o))
}

func TestFormatMetrics_Rounds(t *testing.T) {
	m := core.IntervalMetrics{Interval: "0-60", Start: 0, End: 60, VehicleCount: 2, AvgTravelTime: 30, AvgSpeed: 40.0 / 3.0}
	assert.Equal(t, []string{"0-60", "0", "60", "2", "30", "13.33"}, FormatMetrics(m))
}
