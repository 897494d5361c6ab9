// Package monitor periodically reports the progress of a recording.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/droneview/internal/session"
	"github.com/OCAP2/droneview/internal/storage"
)

const defaultInterval = 10 * time.Second

// Counter reports the length of the trajectory log. *recorder.Recorder
// satisfies it.
type Counter interface {
	Len() int
}

// PendingProvider is an optional interface that backends can implement
// to expose how many rows are still queued for writing.
type PendingProvider interface {
	Pending() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Session    *session.Context
	Recorder   Counter
	Backend    storage.Backend
	StatusFile string // optional; rewritten on every tick
	Interval   time.Duration
}

// Status is a point-in-time view of the recording.
type Status struct {
	Time          time.Time `json:"time"`
	RunID         string    `json:"runId"`
	Step          int       `json:"step"`
	SimTime       float64   `json:"simTime"`
	Observations  int       `json:"observations"`
	PendingWrites int       `json:"pendingWrites"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current status. ok is false while no run is active.
func (s *Service) Status() (Status, bool) {
	run := s.deps.Session.Run()
	if run == nil {
		return Status{}, false
	}
	step, simTime := s.deps.Session.Clock()
	st := Status{
		Time:    time.Now().UTC(),
		RunID:   run.ID,
		Step:    step,
		SimTime: simTime,
	}
	if s.deps.Recorder != nil {
		st.Observations = s.deps.Recorder.Len()
	}
	if p, ok := s.deps.Backend.(PendingProvider); ok {
		st.PendingWrites = p.Pending()
	}
	return st, true
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.report()
			}
		}
	}()
}

func (s *Service) report() {
	st, ok := s.Status()
	if !ok {
		return
	}
	s.deps.Logger.Info("Recording status",
		"step", st.Step,
		"simTime", st.SimTime,
		"observations", st.Observations,
		"pendingWrites", st.PendingWrites,
	)
	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, st); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
