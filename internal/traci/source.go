package traci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/OCAP2/droneview/pkg/core"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Second
	closeTimeout   = 5 * time.Second
)

// Config describes how to start and reach the simulator.
type Config struct {
	Binary      string // sumo or sumo-gui; empty attaches to a running server
	ConfigFile  string
	Host        string
	Port        int
	StepLength  float64
	MaxSteps    int // 0 runs until no vehicles are expected
	DialTimeout time.Duration
}

// Addr returns host:port of the TraCI server.
func (c Config) Addr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// Args returns the simulator command line.
func (c Config) Args() []string {
	return []string{
		"-c", c.ConfigFile,
		"--step-length", strconv.FormatFloat(c.StepLength, 'f', -1, 64),
		"--remote-port", strconv.Itoa(c.Port),
	}
}

// Source yields one snapshot per simulation step.
type Source struct {
	cfg     Config
	client  *Client
	proc    *exec.Cmd
	logger  *slog.Logger
	started bool
	step    int
	done    bool
}

// Launch starts the simulator (unless cfg.Binary is empty) and connects
// to it, retrying until cfg.DialTimeout.
func Launch(ctx context.Context, cfg Config, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var proc *exec.Cmd
	if cfg.Binary != "" {
		proc = exec.Command(cfg.Binary, cfg.Args()...)
		if err := proc.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", cfg.Binary, err)
		}
		logger.Info("Simulator started", "binary", cfg.Binary, "config", cfg.ConfigFile, "pid", proc.Process.Pid)
	}

	client, err := dialRetry(ctx, cfg.Addr(), cfg.DialTimeout, logger)
	if err != nil {
		if proc != nil {
			_ = proc.Process.Kill()
			_ = proc.Wait()
		}
		return nil, err
	}

	if api, name, err := client.Version(ctx); err == nil {
		logger.Info("Connected to TraCI server", "addr", cfg.Addr(), "api", api, "server", name)
	} else {
		logger.Warn("TraCI version query failed", "error", err)
	}

	s := NewSource(client, cfg, logger)
	s.proc = proc
	return s, nil
}

// NewSource wraps a connected client.
func NewSource(client *Client, cfg Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{cfg: cfg, client: client, logger: logger}
}

func dialRetry(ctx context.Context, addr string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		client, err := Dial(ctx, addr)
		if err == nil {
			return client, nil
		}
		logger.Debug("TraCI dial failed", "addr", addr, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to %s: %w", addr, errors.Join(ctx.Err(), err))
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// Next advances the simulation (except on the first call) and returns the
// vehicles of the current step. ok is false once no vehicles are expected
// or MaxSteps is reached.
func (s *Source) Next(ctx context.Context) (core.Snapshot, bool, error) {
	if s.done {
		return core.Snapshot{}, false, nil
	}
	if s.cfg.MaxSteps > 0 && s.step >= s.cfg.MaxSteps {
		s.done = true
		return core.Snapshot{}, false, nil
	}

	if s.started {
		if err := s.client.Step(ctx, 0); err != nil {
			return core.Snapshot{}, false, fmt.Errorf("simulation step %d: %w", s.step, err)
		}
	}
	s.started = true

	expected, err := s.client.MinExpected(ctx)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	if expected <= 0 {
		s.done = true
		return core.Snapshot{}, false, nil
	}

	t, err := s.client.Time(ctx)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	ids, err := s.client.VehicleIDs(ctx)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	vehicles, err := s.client.VehicleStates(ctx, ids)
	if err != nil {
		return core.Snapshot{}, false, err
	}

	snap := core.Snapshot{Step: s.step, Time: t, Vehicles: vehicles}
	s.step++
	return snap, true, nil
}

// Close ends the TraCI session and waits for the simulator to exit.
func (s *Source) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := s.client.Close(ctx)
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	if s.proc != nil {
		if err != nil {
			_ = s.proc.Process.Kill()
		}
		if werr := s.proc.Wait(); werr != nil {
			s.logger.Warn("Simulator exited with error", "error", werr)
		}
		s.proc = nil
	}
	return err
}
