// Package table reads and writes trajectory and metrics tables as CSV or
// XLSX files.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/OCAP2/droneview/internal/parser"
	"github.com/OCAP2/droneview/pkg/core"
)

// ReadTrajectories loads a trajectory table from path. The format is chosen
// by extension: .xlsx is read as a workbook, anything else as CSV.
func ReadTrajectories(path string) ([]core.Observation, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadTrajectoriesXLSX(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeTrajectories(f)
}

// DecodeTrajectories reads CSV trajectory records from r.
func DecodeTrajectories(r io.Reader) ([]core.Observation, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty trajectory table")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	return decodeRecords(header, func() ([]string, error) { return cr.Read() })
}

// decodeRecords parses records returned by next until io.EOF.
func decodeRecords(header []string, next func() ([]string, error)) ([]core.Observation, error) {
	h, err := parser.ParseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("trajectory header: %w", err)
	}

	var out []core.Observation
	row := 0
	for {
		rec, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &core.DataError{Row: row, Err: err}
		}
		if isBlank(rec) {
			row++
			continue
		}
		o, err := h.ParseObservation(row, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		row++
	}
	return out, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// WriteMetricsCSV writes rows, rounded for presentation, to path.
func WriteMetricsCSV(path string, rows []core.IntervalMetrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := EncodeMetrics(f, rows); err != nil {
		return err
	}
	return f.Close()
}

// EncodeMetrics writes a metrics CSV to w.
func EncodeMetrics(w io.Writer, rows []core.IntervalMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(parser.MetricsHeader); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	for _, m := range rows {
		if err := cw.Write(parser.FormatMetrics(m)); err != nil {
			return fmt.Errorf("csv write row %s: %w", m.Interval, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeTrajectories writes a complete trajectory CSV to w.
func EncodeTrajectories(w io.Writer, log []core.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(parser.TrajectoryHeader); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	for _, o := range log {
		if err := cw.Write(parser.FormatObservation(o)); err != nil {
			return fmt.Errorf("csv write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TrajectoryWriter is a concurrency-safe, buffered CSV writer for the live
// trajectory table of a run. It implements recorder.Sink.
type TrajectoryWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64

	closed bool
}

// NewTrajectoryWriter creates path, its directory and writes the header.
func NewTrajectoryWriter(path string, bufSizeBytes int) (*TrajectoryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}

	if bufSizeBytes <= 0 {
		bufSizeBytes = 256 * 1024
	}
	bw := bufio.NewWriterSize(f, bufSizeBytes)
	cw := csv.NewWriter(bw)
	if err := cw.Write(parser.TrajectoryHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("csv write header: %w", err)
	}

	return &TrajectoryWriter{file: f, buf: bw, csv: cw}, nil
}

// RecordObservation appends one row.
func (w *TrajectoryWriter) RecordObservation(o *core.Observation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(parser.FormatObservation(*o)); err != nil {
		return fmt.Errorf("csv write row: %w", err)
	}
	w.rows++
	return nil
}

// Flush pushes buffered rows to the file.
func (w *TrajectoryWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes remaining rows and closes the file. Later calls are no-ops.
func (w *TrajectoryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	err := w.csv.Error()
	if err == nil {
		err = w.buf.Flush()
	}
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Rows returns the number of data rows written.
func (w *TrajectoryWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Path returns the file being written.
func (w *TrajectoryWriter) Path() string {
	return w.file.Name()
}
