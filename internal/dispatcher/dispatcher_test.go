package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_Handler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("record", func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	err := d.Dispatch(context.Background(), Event{Command: "record", Args: []string{"--scale", "5"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.Command != "record" || len(got.Args) != 2 {
		t.Errorf("handler got %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), Event{Command: "fly"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_HandlerError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	want := errors.New("boom")

	d.Register("aggregate", func(context.Context, Event) error { return want })

	if err := d.Dispatch(context.Background(), Event{Command: "aggregate"}); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestDispatcher_Logged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("ok", func(context.Context, Event) error { return nil }, Logged())
	d.Register("bad", func(context.Context, Event) error { return errors.New("nope") }, Logged())

	_ = d.Dispatch(context.Background(), Event{Command: "ok"})
	_ = d.Dispatch(context.Background(), Event{Command: "bad"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	joined := strings.Join(logger.messages, "\n")
	if !strings.Contains(joined, "INFO: command complete") {
		t.Errorf("expected completion log, got %q", joined)
	}
	if !strings.Contains(joined, "ERROR: command failed") {
		t.Errorf("expected failure log, got %q", joined)
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("version", func(context.Context, Event) error { return nil })

	if !d.HasHandler("version") {
		t.Error("expected HasHandler to return true")
	}
	if d.HasHandler("missing") {
		t.Error("expected HasHandler to return false")
	}
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("version", func(context.Context, Event) error { return nil }, Summary("print version"))
	d.Register("aggregate", func(context.Context, Event) error { return nil }, Summary("aggregate a table"))

	cmds := d.Commands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Name != "aggregate" || cmds[0].Summary != "aggregate a table" {
		t.Errorf("unexpected first command %+v", cmds[0])
	}
	if cmds[1].Name != "version" {
		t.Errorf("unexpected second command %+v", cmds[1])
	}
}
