package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTrajectories(t *testing.T) {
	in := "time,veh_id,x,y,speed,lane_id\n" +
		"0,v1,1,2,10,E0_0\n" +
		"\n" +
		"1,v1,2,2,11,E0_0\n"

	log, err := DecodeTrajectories(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, core.Observation{Time: 1, VehicleID: "v1", X: 2, Y: 2, Speed: 11, LaneID: "E0_0"}, log[1])
}

func TestDecodeTrajectories_DataErrorNamesRow(t *testing.T) {
	in := "time,veh_id,speed\n0,v1,10\n1,v1,fast\n"

	_, err := DecodeTrajectories(strings.NewReader(in))
	var de *core.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Row)
	assert.Equal(t, "speed", de.Field)
	assert.Equal(t, "fast", de.Value)
}

func TestDecodeTrajectories_BlankRecordsKeepRowNumbers(t *testing.T) {
	in := "time,veh_id,speed\n0,v1,10\n,,\n1,v1,fast\n"

	_, err := DecodeTrajectories(strings.NewReader(in))
	var de *core.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Row)
}

func TestDecodeTrajectories_Empty(t *testing.T) {
	_, err := DecodeTrajectories(strings.NewReader(""))
	assert.Error(t, err)
}

func TestEncodeMetrics(t *testing.T) {
	var buf bytes.Buffer
	rows := []core.IntervalMetrics{
		{Interval: "0-60", Start: 0, End: 60, VehicleCount: 2, AvgTravelTime: 30, AvgSpeed: 40.0 / 3.0},
	}
	require.NoError(t, EncodeMetrics(&buf, rows))
	assert.Equal(t,
		"interval,start_time,end_time,vehicle_count,avg_travel_time_sec,avg_speed\n0-60,0,60,2,30,13.33\n",
		buf.String())
}

func TestTrajectoryWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "drone_trajectories.csv")
	w, err := NewTrajectoryWriter(path, 0)
	require.NoError(t, err)

	obs := []core.Observation{
		{Time: 0, VehicleID: "v1", X: 288.84, Y: 187.33, Speed: 13.9, LaneID: "E1_0"},
		{Time: 1, VehicleID: "v1", X: 290.5, Y: 187.33, Speed: 14.1, LaneID: "E1_0"},
	}
	for i := range obs {
		require.NoError(t, w.RecordObservation(&obs[i]))
	}
	assert.Equal(t, uint64(2), w.Rows())
	require.NoError(t, w.Close())

	back, err := ReadTrajectories(path)
	require.NoError(t, err)
	assert.Equal(t, obs, back)
}

func TestEncodeTrajectories(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeTrajectories(&buf, []core.Observation{{Time: 2.5, VehicleID: "a", Speed: 1}}))
	assert.Equal(t, "time,veh_id,x,y,speed,lane_id\n2.5,a,0,0,1,\n", buf.String())
}

func TestWriteMetricsCSV_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metrics.csv")
	require.NoError(t, WriteMetricsCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "interval,start_time,end_time,vehicle_count,avg_travel_time_sec,avg_speed\n", string(data))
}

func TestXLSX_TrajectoriesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.xlsx")
	in := []core.Observation{
		{Time: 0, VehicleID: "v1", X: 1.5, Y: 2, Speed: 10, LaneID: "L0"},
		{Time: 1, VehicleID: "v2", X: 3, Y: 4.25, Speed: 0, LaneID: "L1"},
	}
	require.NoError(t, WriteTrajectoriesXLSX(path, in))

	out, err := ReadTrajectories(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriteMetricsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.xlsx")
	rows := []core.IntervalMetrics{{Interval: "0-60", End: 60, VehicleCount: 1, AvgSpeed: 3.14159}}
	require.NoError(t, WriteMetricsXLSX(path, rows))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPrintMetrics(t *testing.T) {
	var buf bytes.Buffer
	rows := []core.IntervalMetrics{
		{Interval: "0-60", VehicleCount: 2, AvgTravelTime: 30, AvgSpeed: 40.0 / 3.0},
	}
	require.NoError(t, PrintMetrics(&buf, rows))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Interval"))
	assert.Equal(t, strings.Repeat("-", 60), lines[1])
	assert.Contains(t, lines[2], "0-60")
	assert.Contains(t, lines[2], "30.00")
	assert.Contains(t, lines[2], "13.33")
}
