package aggregate

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_EmitsOnBinClose(t *testing.T) {
	s := mustNew(t, 60).NewStream()

	for _, o := range []core.Observation{obs("v1", 0, 10), obs("v2", 10, 20), obs("v1", 30, 10)} {
		closed, err := s.Add(o)
		require.NoError(t, err)
		assert.Empty(t, closed)
	}

	closed, err := s.Add(obs("v3", 185, 4))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "0-60", closed[0].Interval)
	assert.Equal(t, 2, closed[0].VehicleCount)
	assert.Equal(t, 30.0, closed[0].AvgTravelTime)

	last := s.Close()
	require.Len(t, last, 1)
	assert.Equal(t, "180-240", last[0].Interval)
	assert.Equal(t, 4.0, last[0].AvgSpeed)

	assert.Empty(t, s.Close())
}

func TestStream_RejectsObservationBeforeOpenBin(t *testing.T) {
	s := mustNew(t, 60).NewStream()
	_, err := s.Add(obs("v1", 61, 1))
	require.NoError(t, err)

	_, err = s.Add(obs("v1", 59, 1))
	var de *core.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Row)
	assert.Equal(t, "60-120", de.Bin)
}

func TestStream_RejectsTimeOutOfRange(t *testing.T) {
	s := mustNew(t, 60).NewStream()
	_, err := s.Add(obs("v1", 1e20, 1))
	var de *core.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "time", de.Field)
	assert.Equal(t, 0, de.Row)
}

func TestStream_MatchesBatch(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	log := randomLog(r, 300)
	sort.SliceStable(log, func(i, j int) bool { return log[i].Time < log[j].Time })

	a := mustNew(t, 60)
	want, err := a.Aggregate(context.Background(), log)
	require.NoError(t, err)

	s := a.NewStream()
	var got []core.IntervalMetrics
	for _, o := range log {
		closed, err := s.Add(o)
		require.NoError(t, err)
		got = append(got, closed...)
	}
	got = append(got, s.Close()...)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Interval, got[i].Interval)
		assert.Equal(t, want[i].VehicleCount, got[i].VehicleCount)
		assert.InDelta(t, want[i].AvgSpeed, got[i].AvgSpeed, 1e-9)
		assert.InDelta(t, want[i].AvgTravelTime, got[i].AvgTravelTime, 1e-9)
	}
}
