package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/OCAP2/droneview/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendQueueSize    = 10_000
	maxReconnect     = 10
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	ackTimeout       = 10 * time.Second
)

var errClosed = errors.New("websocket connection closed")

// connection owns one WebSocket. A single goroutine writes queued frames;
// a reader routes acks to whoever waits for them. After a drop it redials
// with backoff and replays the message set with setReplay.
type connection struct {
	url    string
	secret string
	dialer *ws.Dialer
	logger *slog.Logger

	queue chan []byte
	done  chan struct{}

	mu      sync.Mutex
	conn    *ws.Conn
	stop    chan struct{} // closed when conn is dropped
	closed  bool
	replay  []byte
	waiters map[string][]chan struct{}

	wmu sync.Mutex
}

func newConnection(rawURL, secret string, logger *slog.Logger) *connection {
	return &connection{
		url:     rawURL,
		secret:  secret,
		dialer:  &ws.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:  logger,
		queue:   make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		waiters: make(map[string][]chan struct{}),
	}
}

// open dials once and starts the loops.
func (c *connection) open() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) dial() (*ws.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := c.dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) attach(conn *ws.Conn) {
	stop := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.stop = stop
	c.mu.Unlock()

	go c.writeLoop(conn, stop)
	go c.readLoop(conn)
}

func (c *connection) writeLoop(conn *ws.Conn, stop <-chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case data := <-c.queue:
			if err := c.write(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.drop(conn)
				return
			}
		}
	}
}

func (c *connection) write(conn *ws.Conn, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read error", "error", err)
				c.drop(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring server message", "raw", string(message))
			continue
		}
		c.acknowledge(ack.For)
	}
}

// drop discards conn, once, and starts reconnecting.
func (c *connection) drop(conn *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	close(c.stop)
	c.mu.Unlock()

	_ = conn.Close()
	go c.reconnect()
}

func (c *connection) reconnect() {
	backoff := initialBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dial()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		replay := c.replay
		c.mu.Unlock()
		if replay != nil {
			if err := c.write(conn, replay); err != nil {
				c.logger.Warn("Failed to replay start_run after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}
	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// setReplay sets the message re-sent first after a reconnect; nil clears it.
func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

// send queues data without blocking; a full queue drops it.
func (c *connection) send(data []byte) {
	select {
	case c.queue <- data:
	default:
		c.logger.Warn("WebSocket send queue full, dropping message")
	}
}

// request queues data and waits for the server to ack ackFor.
func (c *connection) request(ctx context.Context, data []byte, ackFor string) error {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errClosed
	}
	c.waiters[ackFor] = append(c.waiters[ackFor], ch)
	c.mu.Unlock()
	defer c.forget(ackFor, ch)

	c.send(data)

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for ack of %q: %w", ackFor, ctx.Err())
	case <-c.done:
		return fmt.Errorf("waiting for ack of %q: %w", ackFor, errClosed)
	}
}

// acknowledge wakes the oldest waiter for msgType.
func (c *connection) acknowledge(msgType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.waiters[msgType]
	if len(w) == 0 {
		c.logger.Debug("Unexpected ack", "for", msgType)
		return
	}
	w[0] <- struct{}{}
	c.waiters[msgType] = w[1:]
}

func (c *connection) forget(msgType string, ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.waiters[msgType]
	for i := range w {
		if w[i] == ch {
			c.waiters[msgType] = append(w[:i:i], w[i+1:]...)
			return
		}
	}
}

// close sends a close frame and stops all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.wmu.Lock()
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return conn.Close()
}
