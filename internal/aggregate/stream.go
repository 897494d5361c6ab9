package aggregate

import (
	"errors"
	"strconv"
	"sync"

	"github.com/OCAP2/droneview/pkg/core"
)

var errClosedBin = errors.New("observation falls before the open bin")

// Stream aggregates observations as they arrive. Observations must come in
// non-decreasing time order, as a simulator produces them. A bin's row is
// emitted once an observation lands in a later bin, so travel times are
// only finalized when their bin closes.
type Stream struct {
	agg *Aggregator

	mu   sync.Mutex
	row  int
	open *core.TimeBin
	buf  []core.Observation
}

// NewStream returns a streaming aggregator over a's bin width.
func (a *Aggregator) NewStream() *Stream {
	return &Stream{agg: a}
}

// Add accepts one observation and returns the row of the bin it closed,
// if any. Empty bins between the closed bin and the new one produce no row.
func (s *Stream) Add(o core.Observation) ([]core.IntervalMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.row
	s.row++
	if err := o.Validate(row); err != nil {
		return nil, err
	}

	key := o.TimeBinKey()
	bin := s.agg.BinFor(key)

	var closed []core.IntervalMetrics
	switch {
	case s.open == nil:
		s.open = &bin
	case key < s.open.Start:
		return nil, &core.DataError{Row: row, Bin: s.open.Label(), Field: "time", Value: strconv.Itoa(key), Err: errClosedBin}
	case key >= s.open.End:
		closed = append(closed, s.flush())
		s.open = &bin
	}

	s.buf = append(s.buf, o)
	return closed, nil
}

// Close flushes the open bin. The stream can be reused afterwards.
func (s *Stream) Close() []core.IntervalMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		return nil
	}
	m := s.flush()
	s.open = nil
	return []core.IntervalMetrics{m}
}

// flush computes the open bin from the buffered observations.
func (s *Stream) flush() core.IntervalMetrics {
	rows, _ := normalize(s.buf)
	m := computeBin(*s.open, rows)
	s.buf = s.buf[:0]
	return m
}
