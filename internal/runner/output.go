package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/OCAP2/droneview/internal/chart"
	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/internal/table"
	"github.com/OCAP2/droneview/pkg/core"
)

// Outputs resolves and writes the files of a recording.
type Outputs struct {
	cfg    config.OutputConfig
	logger *slog.Logger
}

// NewOutputs returns an Outputs rooted at cfg.Dir.
func NewOutputs(cfg config.OutputConfig, logger *slog.Logger) Outputs {
	if logger == nil {
		logger = slog.Default()
	}
	return Outputs{cfg: cfg, logger: logger}
}

// Path resolves name against the output directory. Empty stays empty.
func (o Outputs) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.cfg.Dir, name)
}

// TrajectoriesPath is where the live trajectory table goes.
func (o Outputs) TrajectoriesPath() string {
	return o.Path(o.cfg.TrajectoriesFile)
}

// FramesDir is where rendered frames go.
func (o Outputs) FramesDir() string {
	if o.cfg.FramesDir == "" {
		return o.Path("frames")
	}
	return o.Path(o.cfg.FramesDir)
}

// WriteMetrics writes the metrics table (.csv or .xlsx), prints it to w
// when w is non-nil and renders the chart and dashboard if configured.
// It returns the files written.
func (o Outputs) WriteMetrics(title string, rows []core.IntervalMetrics, w io.Writer) ([]string, error) {
	var files []string

	path := o.Path(o.cfg.MetricsFile)
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = table.WriteMetricsXLSX(path, rows)
	} else {
		err = table.WriteMetricsCSV(path, rows)
	}
	if err != nil {
		return files, fmt.Errorf("write metrics: %w", err)
	}
	files = append(files, path)

	if w != nil {
		if err := table.PrintMetrics(w, rows); err != nil {
			return files, err
		}
	}

	if p := o.Path(o.cfg.ChartFile); p != "" {
		if err := chart.WriteMetricsPNG(p, rows); err != nil {
			if !errors.Is(err, chart.ErrNoData) {
				return files, fmt.Errorf("write chart: %w", err)
			}
			o.logger.Warn("No intervals to chart", "file", p)
		} else {
			files = append(files, p)
		}
	}

	if p := o.Path(o.cfg.DashboardFile); p != "" {
		if err := chart.WriteDashboard(p, title, rows); err != nil {
			if !errors.Is(err, chart.ErrNoData) {
				return files, fmt.Errorf("write dashboard: %w", err)
			}
		} else {
			files = append(files, p)
		}
	}

	o.logger.Info("Metrics written", "files", files, "intervals", len(rows))
	return files, nil
}
