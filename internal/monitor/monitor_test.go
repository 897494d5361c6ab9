package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/droneview/internal/session"
	"github.com/OCAP2/droneview/pkg/core"
)

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

type pendingBackend struct {
	pending int
}

func (b *pendingBackend) Init() error { return nil }
func (b *pendingBackend) Close() error { return nil }
func (b *pendingBackend) StartRun(*core.Run) error { return nil }
func (b *pendingBackend) EndRun() error { return nil }
func (b *pendingBackend) RecordObservation(*core.Observation) error { return nil }
func (b *pendingBackend) RecordMetrics(*core.IntervalMetrics) error { return nil }
func (b *pendingBackend) Pending() int { return b.pending }

func TestStatus(t *testing.T) {
	sess := session.NewContext()
	s := NewService(Dependencies{
		Session:  sess,
		Recorder: fixedCounter(12),
		Backend:  &pendingBackend{pending: 3},
	})

	_, ok := s.Status()
	assert.False(t, ok, "no run active")

	sess.Start(&core.Run{ID: "r1"})
	sess.Tick(4, 4.0)

	st, ok := s.Status()
	require.True(t, ok)
	assert.Equal(t, "r1", st.RunID)
	assert.Equal(t, 4, st.Step)
	assert.Equal(t, 4.0, st.SimTime)
	assert.Equal(t, 12, st.Observations)
	assert.Equal(t, 3, st.PendingWrites)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	sess := session.NewContext()
	sess.Start(&core.Run{ID: "r2"})

	s := NewService(Dependencies{
		Session:    sess,
		Recorder:   fixedCounter(1),
		StatusFile: path,
		Interval:   10 * time.Millisecond,
	})
	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, "r2", st.RunID)
	assert.Equal(t, 1, st.Observations)
}
