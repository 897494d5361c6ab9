package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// messageWriter is the part of *gelf.Writer the handler needs.
type messageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GELFHandler sends records to Graylog as GELF messages. Attributes become
// additional fields.
type GELFHandler struct {
	w     messageWriter
	level slog.Leveler
	host  string
	attrs []slog.Attr
	group string
}

// NewGELFHandler creates a handler writing to w.
func NewGELFHandler(w messageWriter, level slog.Leveler) *GELFHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "droneview"
	}
	return &GELFHandler{w: w, level: level, host: host}
}

// Enabled reports whether level passes the handler's threshold.
func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts r into a GELF message.
func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		extra["_"+key] = a.Value.Resolve().Any()
		return true
	})

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(t.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Facility: "droneview",
		Extra:    extra,
	})
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

// WithGroup prefixes subsequent record attributes with name.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}

// syslogLevel maps slog levels to syslog severities.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
