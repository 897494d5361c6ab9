package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// Options configures SlogManager.Setup. Zero values disable the matching
// output.
type Options struct {
	// File receives text logs. When nil, logs go to stdout instead.
	File  io.Writer
	Level string
	// Provider enables the OTel bridge.
	Provider *sdklog.LoggerProvider
	// GraylogAddress enables GELF over UDP, e.g. "localhost:12201".
	GraylogAddress string
	// Context adds dynamic attributes such as the run id to every record.
	Context ContextProvider
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
	gelf        *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Calling it again replaces the
// previous logger.
func (m *SlogManager) Setup(opts Options) error {
	lvl := parseLevel(opts.Level)
	m.logProvider = opts.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if m.gelf != nil {
		m.gelf.Close()
		m.gelf = nil
	}
	if opts.GraylogAddress != "" {
		w, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			return fmt.Errorf("failed to connect to graylog at %s: %w", opts.GraylogAddress, err)
		}
		w.Facility = "droneview"
		m.gelf = w
		handlers = append(handlers, NewGELFHandler(w, lvl))
	}

	if opts.Provider != nil {
		otelHandler := otelslog.NewHandler("droneview", otelslog.WithLoggerProvider(opts.Provider))
		handlers = append(handlers, otelHandler)
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", opts.Level)
	return nil
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the GELF connection.
func (m *SlogManager) Close() error {
	if m.gelf == nil {
		return nil
	}
	err := m.gelf.Close()
	m.gelf = nil
	return err
}
