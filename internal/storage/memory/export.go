// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/droneview/internal/table"
	"github.com/OCAP2/droneview/pkg/core"
)

// RunExport is the root JSON structure of an exported run.
type RunExport struct {
	RunID        string                 `json:"runId"`
	Name         string                 `json:"name"`
	Source       string                 `json:"source"`
	StartTime    time.Time              `json:"startTime"`
	StepLength   float64                `json:"stepLength"`
	BinWidth     int                    `json:"binWidth"`
	Camera       core.CameraSettings    `json:"camera"`
	Observations []core.Observation     `json:"observations"`
	Metrics      []core.IntervalMetrics `json:"metrics"`
}

// baseName builds a filesystem-safe file stem from the run name and start.
func baseName(run *core.Run) string {
	name := run.Name
	if name == "" {
		name = "run"
	}
	name = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(name)
	return fmt.Sprintf("%s_%s", name, run.StartTime.Format("20060102_150405"))
}

// export writes the run JSON plus trajectory and metrics CSVs. Called with
// b.mu held.
func (b *Backend) export() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stem := filepath.Join(b.cfg.OutputDir, baseName(b.run))
	data := b.buildExport()

	var files []string
	jsonPath := stem + ".json"
	if b.cfg.CompressOutput {
		jsonPath += ".gz"
		if err := writeGzipJSON(jsonPath, data); err != nil {
			return err
		}
	} else {
		if err := writeJSON(jsonPath, data); err != nil {
			return err
		}
	}
	files = append(files, jsonPath)

	trajPath := stem + "_trajectories.csv"
	if err := writeCSV(trajPath, func(f *os.File) error { return table.EncodeTrajectories(f, b.observations) }); err != nil {
		return err
	}
	files = append(files, trajPath)

	metricsPath := stem + "_metrics.csv"
	if err := table.WriteMetricsCSV(metricsPath, b.metrics); err != nil {
		return err
	}
	files = append(files, metricsPath)

	b.exported = files
	return nil
}

func (b *Backend) buildExport() RunExport {
	obs := b.observations
	if obs == nil {
		obs = []core.Observation{}
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = []core.IntervalMetrics{}
	}
	return RunExport{
		RunID:        b.run.ID,
		Name:         b.run.Name,
		Source:       b.run.Source,
		StartTime:    b.run.StartTime,
		StepLength:   b.run.StepLength,
		BinWidth:     b.run.BinWidth,
		Camera:       b.run.Camera,
		Observations: obs,
		Metrics:      metrics,
	}
}

func writeCSV(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := encode(f); err != nil {
		return err
	}
	return f.Close()
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
