package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/OCAP2/droneview/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_run/end_run.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			env, err := streaming.Decode(msg, nil)
			if err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun {
				ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(&core.Run{ID: "r-1", Name: "peak"}))
	require.NoError(t, b.EndRun())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[len(msgs)-1].Type)

	var start streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "r-1", start.Run.ID)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartRun(&core.Run{ID: "r-2"}))
	require.NoError(t, b.RecordObservation(&core.Observation{Time: 1, VehicleID: "v1"}))
	require.NoError(t, b.RecordObservation(&core.Observation{Time: 2, VehicleID: "v1"}))
	require.NoError(t, b.RecordMetrics(&core.IntervalMetrics{Interval: "0-60", End: 60}))
	require.NoError(t, b.EndRun())

	msgs := ml.all()
	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartRun])
	assert.Equal(t, 1, types[streaming.TypeEndRun])
	assert.Equal(t, 2, types[streaming.TypeObservation])
	assert.Equal(t, 1, types[streaming.TypeMetrics])
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/ingest"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEndRun_TimeoutWithoutAck(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	b.ackTimeout = 50 * time.Millisecond
	err := b.EndRun()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
