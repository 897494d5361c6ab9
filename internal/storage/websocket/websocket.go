package websocket

import (
	"context"
	"log/slog"

	"time"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/OCAP2/droneview/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams a recording over WebSocket to a live consumer.
// Observations and metrics are fire-and-forget; run start and end wait
// for an ack.
type Backend struct {
	conn       *connection
	ackTimeout time.Duration
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn:       newConnection(cfg.URL, cfg.Secret, logger),
		ackTimeout: ackTimeout,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.open()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartRun sends the run and waits for server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := streaming.Marshal(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.setReplay(data)
	return b.request(data, streaming.TypeStartRun)
}

// EndRun sends end_run and waits for server ack.
func (b *Backend) EndRun() error {
	data, err := streaming.Marshal(streaming.TypeEndRun, nil)
	if err != nil {
		return err
	}
	err = b.request(data, streaming.TypeEndRun)
	b.conn.setReplay(nil)
	return err
}

func (b *Backend) request(data []byte, ackFor string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.ackTimeout)
	defer cancel()
	return b.conn.request(ctx, data, ackFor)
}

func (b *Backend) RecordObservation(o *core.Observation) error {
	return b.sendEnvelope(streaming.TypeObservation, o)
}

func (b *Backend) RecordMetrics(m *core.IntervalMetrics) error {
	return b.sendEnvelope(streaming.TypeMetrics, m)
}
