package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/droneview/pkg/core"
)

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "b.gz"))
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_UnreachableUsesBackup(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")

	path := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), path)
	m.RunID = "r1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	require.NoError(t, m.RecordStep(12, 3, 7))
	require.NoError(t, m.RecordMetrics(&core.IntervalMetrics{Interval: "0-60", End: 60, VehicleCount: 2, AvgSpeed: 13.3333}))
	require.NoError(t, m.Close())

	lines := strings.Split(strings.TrimSpace(readBackup(t, path)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "camera_step,run=r1 "))
	assert.Contains(t, lines[0], "visible=3i")
	assert.Contains(t, lines[0], "hidden=7i")
	assert.True(t, strings.HasPrefix(lines[1], "interval_metrics,interval=0-60,run=r1 "))
	assert.Contains(t, lines[1], "avgSpeed=13.3333")
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.RecordStep(0, 0, 0))
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	m.IsValid = true
	err := m.WritePoint("nope", StepPoint("r", 0, time.Now(), 0, 0))
	assert.ErrorContains(t, err, "not registered")
}
