package postgres

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/OCAP2/droneview/internal/database"
	"github.com/OCAP2/droneview/internal/model"
	"github.com/OCAP2/droneview/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	b := New(Dependencies{
		Config:       database.Config{Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x"},
		FallbackPath: path,
		DBLogger:     zerolog.New(io.Discard),
	})

	require.NoError(t, b.Init())
	defer func() { require.NoError(t, b.Close()) }()
	assert.True(t, b.Local())

	require.NoError(t, b.StartRun(&core.Run{ID: "r-1"}))
	require.NoError(t, b.RecordObservation(&core.Observation{Time: 0, VehicleID: "v1", Speed: 3}))
	require.NoError(t, b.EndRun())

	var count int64
	require.NoError(t, b.DB().Model(&model.Observation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.FileExists(t, path)
}
