// Package chart renders interval metrics and space-time series as PNG
// plots and an HTML dashboard.
package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/OCAP2/droneview/internal/spacetime"
	"github.com/OCAP2/droneview/pkg/core"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("chart: no data")

const maxLegendEntries = 12

// WriteMetricsPNG renders vehicle count, average speed and average travel
// time per interval as three stacked panels.
func WriteMetricsPNG(path string, rows []core.IntervalMetrics) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	labels := make([]string, len(rows))
	counts := make(plotter.Values, len(rows))
	speeds := make(plotter.XYs, len(rows))
	travel := make(plotter.XYs, len(rows))
	for i, m := range rows {
		r := m.Rounded()
		labels[i] = r.Interval
		counts[i] = float64(r.VehicleCount)
		speeds[i] = plotter.XY{X: float64(i), Y: r.AvgSpeed}
		travel[i] = plotter.XY{X: float64(i), Y: r.AvgTravelTime}
	}

	pCount := newPanel("Vehicle Count per Interval", "Vehicles", labels)
	bars, err := plotter.NewBarChart(counts, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	pCount.Add(bars)

	pSpeed := newPanel("Average Speed per Interval", "Speed (m/s)", labels)
	if err := addLine(pSpeed, speeds, 1); err != nil {
		return err
	}

	pTravel := newPanel("Average Travel Time per Interval", "Travel Time (s)", labels)
	if err := addLine(pTravel, travel, 2); err != nil {
		return err
	}

	img := vgimg.New(12*vg.Inch, 12*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 3, Cols: 1, PadY: vg.Points(10)}
	canvases := plot.Align([][]*plot.Plot{{pCount}, {pSpeed}, {pTravel}}, tiles, dc)
	pCount.Draw(canvases[0][0])
	pSpeed.Draw(canvases[1][0])
	pTravel.Draw(canvases[2][0])

	return savePNG(path, img)
}

// WriteSpaceTimePNG draws cumulative distance over time, one line per
// vehicle.
func WriteSpaceTimePNG(path string, series []spacetime.Series) error {
	if len(series) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Space-Time Diagram"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Distance (m)"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		pts := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			pts[j] = plotter.XY{X: pt.Time, Y: pt.Distance}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", s.VehicleID, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		if len(series) <= maxLegendEntries {
			p.Legend.Add(s.VehicleID, line)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return p.Save(14*vg.Inch, 8*vg.Inch, path)
}

func newPanel(title, yLabel string, labels []string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Interval (s)"
	p.Y.Label.Text = yLabel
	p.NominalX(labels...)
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, colorIdx int) error {
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(colorIdx)
	line.Width = vg.Points(1.5)
	points.Color = plotutil.Color(colorIdx)
	p.Add(line, points)
	return nil
}

func savePNG(path string, img *vgimg.Canvas) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
