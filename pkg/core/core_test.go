package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationValidate(t *testing.T) {
	valid := Observation{Time: 12.5, VehicleID: "v1", X: 1, Y: 2, Speed: 3}

	tests := []struct {
		name  string
		mod   func(o *Observation)
		field string
	}{
		{"valid", func(o *Observation) {}, ""},
		{"empty id", func(o *Observation) { o.VehicleID = "" }, "veh_id"},
		{"negative time", func(o *Observation) { o.Time = -1 }, "time"},
		{"nan time", func(o *Observation) { o.Time = math.NaN() }, "time"},
		{"huge time", func(o *Observation) { o.Time = 1e20 }, "time"},
		{"time past max", func(o *Observation) { o.Time = MaxTime + 1 }, "time"},
		{"time at max", func(o *Observation) { o.Time = MaxTime }, ""},
		{"inf speed", func(o *Observation) { o.Speed = math.Inf(1) }, "speed"},
		{"negative speed", func(o *Observation) { o.Speed = -0.5 }, "speed"},
		{"nan x", func(o *Observation) { o.X = math.NaN() }, "x"},
		{"inf y", func(o *Observation) { o.Y = math.Inf(-1) }, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mod(&o)
			err := o.Validate(7)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var de *DataError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, 7, de.Row)
			assert.Equal(t, tt.field, de.Field)
			assert.ErrorIs(t, err, ErrData)
		})
	}
}

func TestTimeBinKey_Truncates(t *testing.T) {
	assert.Equal(t, 59, Observation{Time: 59.99}.TimeBinKey())
	assert.Equal(t, 60, Observation{Time: 60}.TimeBinKey())
	assert.Equal(t, 0, Observation{Time: 0.4}.TimeBinKey())
}

func TestDataError_Message(t *testing.T) {
	err := &DataError{Row: 3, Bin: "60-120", Field: "speed", Value: "NaN", Err: errNotFinite}
	assert.Equal(t, `row 3 (bin 60-120): field "speed" = "NaN": value is not finite`, err.Error())
	assert.True(t, errors.Is(err, errNotFinite))
	assert.False(t, errors.Is(err, ErrConfig))
}

func TestConfigError(t *testing.T) {
	err := error(&ConfigError{Field: "binWidth", Reason: "must be positive"})
	assert.Equal(t, "invalid config binWidth: must be positive", err.Error())
	assert.ErrorIs(t, err, ErrConfig)
	assert.NotErrorIs(t, err, ErrData)
}

func TestTimeBin(t *testing.T) {
	b := TimeBin{Start: 60, End: 120}
	assert.Equal(t, "60-120", b.Label())
	assert.True(t, b.Contains(60))
	assert.True(t, b.Contains(119))
	assert.False(t, b.Contains(120))
}

func TestIntervalMetricsRounded(t *testing.T) {
	m := IntervalMetrics{AvgSpeed: 40.0 / 3.0, AvgTravelTime: 12.346}
	r := m.Rounded()
	assert.Equal(t, 13.33, r.AvgSpeed)
	assert.Equal(t, 12.35, r.AvgTravelTime)
	assert.Equal(t, 40.0/3.0, m.AvgSpeed, "original keeps full precision")
}
