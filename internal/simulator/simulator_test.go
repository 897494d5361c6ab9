package simulator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/droneview/internal/traci"
	"github.com/OCAP2/droneview/pkg/core"
)

var (
	_ Source = (*Replay)(nil)
	_ Source = (*traci.Source)(nil)
)

func TestReplay(t *testing.T) {
	r := NewReplay([]core.Observation{
		{Time: 1, VehicleID: "b", X: 3},
		{Time: 0, VehicleID: "a", X: 1},
		{Time: 1, VehicleID: "a", X: 2, Speed: 4, LaneID: "L"},
	})
	require.Equal(t, 2, r.Len())
	ctx := context.Background()

	snap, ok, err := r.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Snapshot{Step: 0, Time: 0, Vehicles: []core.VehicleState{{VehicleID: "a", X: 1}}}, snap)

	snap, ok, err = r.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, snap.Step)
	assert.Equal(t, []core.VehicleState{
		{VehicleID: "b", X: 3},
		{VehicleID: "a", X: 2, Speed: 4, LaneID: "L"},
	}, snap.Vehicles)

	_, ok, err = r.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, r.Close())
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewReplay([]core.Observation{{VehicleID: "a"}}).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traj.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,veh_id,x,y,speed,lane_id\n0,v1,1,2,3,E0_0\n"), 0644))

	r, err := OpenReplay(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	_, err = OpenReplay(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
