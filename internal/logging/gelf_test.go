package logging

import (
	"log/slog"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []*gelf.Message
}

func (c *captureWriter) WriteMessage(m *gelf.Message) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func TestGELFHandler(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandler(w, slog.LevelInfo)).With("run", "r-1")

	logger.Debug("filtered")
	logger.Warn("camera left network", "step", 12)

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "camera left network", m.Short)
	assert.Equal(t, int32(4), m.Level)
	assert.Equal(t, "droneview", m.Facility)
	assert.Equal(t, "r-1", m.Extra["_run"])
	assert.Equal(t, int64(12), m.Extra["_step"])
	assert.Positive(t, m.TimeUnix)
}

func TestGELFHandler_Group(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandler(w, slog.LevelDebug)).WithGroup("bin")

	logger.Error("closed", "label", "0-60")

	require.Len(t, w.msgs, 1)
	assert.Equal(t, int32(3), w.msgs[0].Level)
	assert.Equal(t, "0-60", w.msgs[0].Extra["_bin.label"])
}

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(7), syslogLevel(slog.LevelDebug))
	assert.Equal(t, int32(6), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(4), syslogLevel(slog.LevelWarn))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError))
}
