package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/droneview/internal/spacetime"
	"github.com/OCAP2/droneview/pkg/core"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleRows() []core.IntervalMetrics {
	return []core.IntervalMetrics{
		{Interval: "0-60", Start: 0, End: 60, VehicleCount: 2, AvgTravelTime: 30, AvgSpeed: 40.0 / 3.0},
		{Interval: "120-180", Start: 120, End: 180, VehicleCount: 5, AvgTravelTime: 12.5, AvgSpeed: 9.87654},
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Greater(t, len(data), len(pngMagic))
	assert.Equal(t, pngMagic, data[:len(pngMagic)])
}

func TestWriteMetricsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "traffic_metrics.png")
	require.NoError(t, WriteMetricsPNG(path, sampleRows()))
	assertPNG(t, path)
}

func TestWriteSpaceTimePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spacetime.png")
	series := spacetime.Build([]core.Observation{
		{Time: 0, VehicleID: "v1", X: 0},
		{Time: 1, VehicleID: "v1", X: 10},
		{Time: 1, VehicleID: "v2", X: 5},
		{Time: 3, VehicleID: "v2", X: 20},
	})
	require.NoError(t, WriteSpaceTimePNG(path, series))
	assertPNG(t, path)
}

func TestNoData(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, WriteMetricsPNG(filepath.Join(dir, "a.png"), nil), ErrNoData)
	assert.ErrorIs(t, WriteSpaceTimePNG(filepath.Join(dir, "b.png"), nil), ErrNoData)
	assert.ErrorIs(t, RenderDashboard(&bytes.Buffer{}, "x", nil), ErrNoData)
}

func TestRenderDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, "Traffic Metrics", sampleRows()))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "120-180")
	assert.Contains(t, html, "9.88")
	assert.Contains(t, html, "Traffic Metrics")
}

func TestWriteDashboard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dash", "traffic_metrics.html")
	require.NoError(t, WriteDashboard(path, "run", sampleRows()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
