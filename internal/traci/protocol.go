package traci

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Command identifiers.
const (
	cmdGetVersion     = 0x00
	cmdSimulationStep = 0x02
	cmdClose          = 0x7F
	cmdGetVehicleVar  = 0xa4
	cmdGetSimVar      = 0xab

	responseOffset = 0x10
)

// Variable identifiers.
const (
	varIDList      = 0x00
	varSpeed       = 0x40
	varPosition    = 0x42
	varLaneID      = 0x51
	varTime        = 0x66
	varMinExpected = 0x7d
)

// Data types.
const (
	typePosition2D = 0x01
	typeInteger    = 0x09
	typeDouble     = 0x0B
	typeString     = 0x0C
	typeStringList = 0x0E
)

const (
	resultOK = 0x00

	headerLen = 4
)

var errShortRead = errors.New("traci: truncated message")

// StatusError is a non-OK status returned by the simulator.
type StatusError struct {
	Command     byte
	Result      byte
	Description string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("traci: command 0x%02x failed (status 0x%02x): %s", e.Command, e.Result, e.Description)
}

// buffer builds a TraCI payload in network byte order.
type buffer struct {
	b []byte
}

func (w *buffer) ubyte(v byte) {
	w.b = append(w.b, v)
}

func (w *buffer) int32(v int32) {
	w.b = binary.BigEndian.AppendUint32(w.b, uint32(v))
}

func (w *buffer) double(v float64) {
	w.b = binary.BigEndian.AppendUint64(w.b, math.Float64bits(v))
}

func (w *buffer) str(s string) {
	w.int32(int32(len(s)))
	w.b = append(w.b, s...)
}

func (w *buffer) strList(l []string) {
	w.int32(int32(len(l)))
	for _, s := range l {
		w.str(s)
	}
}

// command is one TraCI command: id plus payload.
type command struct {
	id      byte
	payload []byte
}

// appendCommand frames c with its length prefix. Lengths above 255 use
// the extended form: a zero byte followed by an int32.
func appendCommand(dst []byte, c command) []byte {
	n := 1 + 1 + len(c.payload)
	if n <= 255 {
		dst = append(dst, byte(n), c.id)
	} else {
		n += 4
		dst = append(dst, 0)
		dst = binary.BigEndian.AppendUint32(dst, uint32(n))
		dst = append(dst, c.id)
	}
	return append(dst, c.payload...)
}

// encodeMessage frames cmds into one message with its total length.
func encodeMessage(cmds ...command) []byte {
	body := make([]byte, headerLen, 64)
	for _, c := range cmds {
		body = appendCommand(body, c)
	}
	binary.BigEndian.PutUint32(body, uint32(len(body)))
	return body
}

func getCommand(id, variable byte, objectID string) command {
	var w buffer
	w.ubyte(variable)
	w.str(objectID)
	return command{id: id, payload: w.b}
}

// reader decodes a TraCI message body. The first error sticks.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.err = errShortRead
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) ubyte() byte {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *reader) int32() int32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(p))
}

func (r *reader) double() float64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p))
}

func (r *reader) str() string {
	n := r.int32()
	return string(r.take(int(n)))
}

func (r *reader) strList() []string {
	n := r.int32()
	if r.err != nil || n < 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := int32(0); i < n && r.err == nil; i++ {
		out = append(out, r.str())
	}
	return out
}

func (r *reader) remaining() int {
	return len(r.b) - r.off
}

// commandHeader reads a length prefix and command id and returns the
// offset where the command ends.
func (r *reader) commandHeader() (id byte, end int) {
	start := r.off
	n := int(r.ubyte())
	if n == 0 {
		n = int(r.int32())
	}
	id = r.ubyte()
	return id, start + n
}

// status reads a status response for cmd.
func (r *reader) status(cmd byte) error {
	id, _ := r.commandHeader()
	result := r.ubyte()
	desc := r.str()
	if r.err != nil {
		return r.err
	}
	if id != cmd {
		return fmt.Errorf("traci: status for 0x%02x, expected 0x%02x", id, cmd)
	}
	if result != resultOK {
		return &StatusError{Command: cmd, Result: result, Description: desc}
	}
	return nil
}

// value reads the header of a get response and checks its type. The
// value itself is left for the caller.
func (r *reader) value(cmd, variable, typ byte) error {
	id, _ := r.commandHeader()
	v := r.ubyte()
	r.str()
	t := r.ubyte()
	if r.err != nil {
		return r.err
	}
	if id != cmd+responseOffset || v != variable {
		return fmt.Errorf("traci: response 0x%02x/0x%02x, expected 0x%02x/0x%02x", id, v, cmd+responseOffset, variable)
	}
	if t != typ {
		return fmt.Errorf("traci: variable 0x%02x has type 0x%02x, expected 0x%02x", variable, t, typ)
	}
	return nil
}
