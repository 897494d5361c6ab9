package table

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/OCAP2/droneview/internal/parser"
	"github.com/OCAP2/droneview/pkg/core"
	"github.com/xuri/excelize/v2"
)

const metricsSheet = "Metrics"

// ReadTrajectoriesXLSX reads the first sheet of a workbook as a trajectory
// table.
func ReadTrajectoriesXLSX(path string) ([]core.Observation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty trajectory table")
	}

	i := 1
	return decodeRecords(rows[0], func() ([]string, error) {
		if i >= len(rows) {
			return nil, io.EOF
		}
		rec := rows[i]
		i++
		return rec, nil
	})
}

// WriteMetricsXLSX writes rows, rounded, to a single-sheet workbook.
// Numeric columns are stored as numbers.
func WriteMetricsXLSX(path string, rows []core.IntervalMetrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", metricsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(parser.MetricsHeader))
	for i, h := range parser.MetricsHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(metricsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, m := range rows {
		r := m.Rounded()
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Interval, r.Start, r.End, r.VehicleCount, r.AvgTravelTime, r.AvgSpeed}
		if err := f.SetSheetRow(metricsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %s: %w", r.Interval, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteTrajectoriesXLSX writes the trajectory log to a single-sheet workbook.
func WriteTrajectoriesXLSX(path string, log []core.Observation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(parser.TrajectoryHeader))
	for i, h := range parser.TrajectoryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, o := range log {
		values := []any{o.Time, o.VehicleID, o.X, o.Y, o.Speed, o.LaneID}
		if err := f.SetSheetRow("Sheet1", "A"+strconv.Itoa(i+2), &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
