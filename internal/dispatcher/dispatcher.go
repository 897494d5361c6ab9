// Package dispatcher routes command-line subcommands to their handlers.
package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/droneview/internal/dispatcher"

// Event is one invocation of a subcommand.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc runs a subcommand.
type HandlerFunc func(ctx context.Context, e Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	summary string
	logged  bool
}

// Summary sets the one-line help text of a command.
func Summary(s string) Option {
	return func(c *config) {
		c.summary = s
	}
}

// Logged adds start/finish logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Command describes a registered command.
type Command struct {
	Name    string
	Summary string
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers  map[string]HandlerFunc
	summaries map[string]string
	logger    Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers:  make(map[string]HandlerFunc),
		summaries: make(map[string]string),
		logger:    logger,
	}

	m := otel.Meter(instrumentationName)

	var err error
	d.processed, err = m.Int64Counter(
		"dispatcher.commands.processed",
		metric.WithDescription("Total commands run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.commands.failed",
		metric.WithDescription("Total commands that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
	d.summaries[command] = cfg.summary
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	h, ok := d.handlers[e.Command]
	if !ok {
		return fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	cmdAttr := metric.WithAttributes(attribute.String("command", e.Command))
	err := h(ctx, e)
	d.processed.Add(ctx, 1, cmdAttr)
	if err != nil {
		d.failed.Add(ctx, 1, cmdAttr)
	}
	return err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered commands by name.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, Command{Name: name, Summary: d.summaries[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) error {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		err := h(ctx, e)

		if err != nil {
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Info("command complete", "command", command, "duration", time.Since(start))
		}

		return err
	}
}
