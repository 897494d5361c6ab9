package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name          string
		logsDir       string
		appName string
		want          string
	}{
		{
			name:          "basic path",
			logsDir:       "droneview_logs",
			appName: "droneview",
			want:          filepath.Join("droneview_logs", "droneview.20260212_213836.log"),
		},
		{
			name:          "relative path with dot",
			logsDir:       "./ocaplogs",
			appName: "droneview",
			want:          filepath.Join(".", "droneview_logs", "droneview.20260212_213836.log"),
		},
		{
			name:          "absolute path",
			logsDir:       filepath.Join("/var", "log", "droneview"),
			appName: "droneview",
			want:          filepath.Join("/var", "log", "droneview", "droneview.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.appName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "droneview.log")
	w := NewRotatingFile(path)
	t.Cleanup(func() { w.Close() })

	_, err := w.Write([]byte("line\n"))
	assert.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 64, w.MaxSize)
}
