// Package traci is a minimal TraCI client for driving a SUMO simulation
// step by step and reading vehicle state.
package traci

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/OCAP2/droneview/pkg/core"
)

// Client is a TraCI connection. Calls are serialized.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
}

// Dial connects to a TraCI server.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return &Client{conn: conn, br: bufio.NewReader(conn)}
}

// roundTrip sends cmds as one message and returns the response body.
func (c *Client) roundTrip(ctx context.Context, cmds ...command) (*reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, net.ErrClosed
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(dl)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := c.conn.Write(encodeMessage(cmds...)); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("traci: write: %w", err))
	}

	var hdr [headerLen]byte
	if _, err := io.ReadFull(c.br, hdr[:]); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("traci: read header: %w", err))
	}
	n := int(binary.BigEndian.Uint32(hdr[:]))
	if n < headerLen {
		return nil, fmt.Errorf("traci: invalid message length %d", n)
	}
	body := make([]byte, n-headerLen)
	if _, err := io.ReadFull(c.br, body); err != nil {
		return nil, c.ctxErr(ctx, fmt.Errorf("traci: read body: %w", err))
	}
	return &reader{b: body}, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return err
}

// Version returns the API version and the server identifier.
func (c *Client) Version(ctx context.Context) (int, string, error) {
	r, err := c.roundTrip(ctx, command{id: cmdGetVersion})
	if err != nil {
		return 0, "", err
	}
	if err := r.status(cmdGetVersion); err != nil {
		return 0, "", err
	}
	id, _ := r.commandHeader()
	api := r.int32()
	name := r.str()
	if r.err != nil {
		return 0, "", r.err
	}
	if id != cmdGetVersion {
		return 0, "", fmt.Errorf("traci: version response 0x%02x", id)
	}
	return int(api), name, nil
}

// Step advances the simulation by one step. target 0 means one step of
// the configured length.
func (c *Client) Step(ctx context.Context, target float64) error {
	var w buffer
	w.double(target)
	r, err := c.roundTrip(ctx, command{id: cmdSimulationStep, payload: w.b})
	if err != nil {
		return err
	}
	if err := r.status(cmdSimulationStep); err != nil {
		return err
	}
	// subscription results; none are requested
	if n := r.int32(); r.err == nil && n != 0 {
		return fmt.Errorf("traci: unexpected %d subscription results", n)
	}
	return r.err
}

// MinExpected returns the number of vehicles still running or waiting
// to be inserted.
func (c *Client) MinExpected(ctx context.Context) (int, error) {
	r, err := c.getSim(ctx, varMinExpected, typeInteger)
	if err != nil {
		return 0, err
	}
	v := r.int32()
	return int(v), r.err
}

// Time returns the current simulation time in seconds.
func (c *Client) Time(ctx context.Context) (float64, error) {
	r, err := c.getSim(ctx, varTime, typeDouble)
	if err != nil {
		return 0, err
	}
	v := r.double()
	return v, r.err
}

func (c *Client) getSim(ctx context.Context, variable, typ byte) (*reader, error) {
	r, err := c.roundTrip(ctx, getCommand(cmdGetSimVar, variable, ""))
	if err != nil {
		return nil, err
	}
	if err := r.status(cmdGetSimVar); err != nil {
		return nil, err
	}
	if err := r.value(cmdGetSimVar, variable, typ); err != nil {
		return nil, err
	}
	return r, nil
}

// VehicleIDs returns the ids of vehicles currently in the network.
func (c *Client) VehicleIDs(ctx context.Context) ([]string, error) {
	r, err := c.roundTrip(ctx, getCommand(cmdGetVehicleVar, varIDList, ""))
	if err != nil {
		return nil, err
	}
	if err := r.status(cmdGetVehicleVar); err != nil {
		return nil, err
	}
	if err := r.value(cmdGetVehicleVar, varIDList, typeStringList); err != nil {
		return nil, err
	}
	ids := r.strList()
	return ids, r.err
}

// VehicleStates reads position, speed and lane of every id in one
// message.
func (c *Client) VehicleStates(ctx context.Context, ids []string) ([]core.VehicleState, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]command, 0, len(ids)*3)
	for _, id := range ids {
		cmds = append(cmds,
			getCommand(cmdGetVehicleVar, varPosition, id),
			getCommand(cmdGetVehicleVar, varSpeed, id),
			getCommand(cmdGetVehicleVar, varLaneID, id),
		)
	}
	r, err := c.roundTrip(ctx, cmds...)
	if err != nil {
		return nil, err
	}

	states := make([]core.VehicleState, len(ids))
	for i, id := range ids {
		s := core.VehicleState{VehicleID: id}

		if err := r.status(cmdGetVehicleVar); err != nil {
			return nil, fmt.Errorf("vehicle %s position: %w", id, err)
		}
		if err := r.value(cmdGetVehicleVar, varPosition, typePosition2D); err != nil {
			return nil, err
		}
		s.X = r.double()
		s.Y = r.double()

		if err := r.status(cmdGetVehicleVar); err != nil {
			return nil, fmt.Errorf("vehicle %s speed: %w", id, err)
		}
		if err := r.value(cmdGetVehicleVar, varSpeed, typeDouble); err != nil {
			return nil, err
		}
		s.Speed = r.double()

		if err := r.status(cmdGetVehicleVar); err != nil {
			return nil, fmt.Errorf("vehicle %s lane: %w", id, err)
		}
		if err := r.value(cmdGetVehicleVar, varLaneID, typeString); err != nil {
			return nil, err
		}
		s.LaneID = r.str()

		if r.err != nil {
			return nil, r.err
		}
		states[i] = s
	}
	return states, nil
}

// Close asks the simulator to shut down and closes the connection.
func (c *Client) Close(ctx context.Context) error {
	r, err := c.roundTrip(ctx, command{id: cmdClose})
	if err == nil {
		err = r.status(cmdClose)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return err
	}
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	c.conn = nil
	return err
}
