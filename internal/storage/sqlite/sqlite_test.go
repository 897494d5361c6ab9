package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/droneview/internal/database"
	"github.com/OCAP2/droneview/internal/model"
	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndRun_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	b, err := New(Config{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()

	require.NoError(t, b.StartRun(&core.Run{ID: "sqlite-run"}))
	require.NoError(t, b.RecordObservation(&core.Observation{Time: 2, VehicleID: "v9", X: 1, Y: 1, Speed: 5}))
	require.NoError(t, b.RecordMetrics(&core.IntervalMetrics{Interval: "0-60", End: 60, VehicleCount: 1, AvgSpeed: 5}))
	require.NoError(t, b.EndRun())
	assert.Equal(t, []string{path}, b.ExportedFiles())

	dumped, err := database.OpenSQLite(path)
	require.NoError(t, err)
	var obs []model.Observation
	require.NoError(t, dumped.Where("vehicle_id = ?", "v9").Find(&obs).Error)
	assert.Len(t, obs, 1)
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	assert.Eventually(t, func() bool { return fileExists(path) }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.Close())
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartRun(&core.Run{ID: "nodump"}))
	require.NoError(t, b.EndRun())
	assert.Nil(t, b.ExportedFiles())
	require.NoError(t, b.Close())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
