package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/OCAP2/droneview/pkg/core"
)

// RenderDashboard writes an HTML page with one chart per metric.
func RenderDashboard(w io.Writer, title string, rows []core.IntervalMetrics) error {
	if len(rows) == 0 {
		return ErrNoData
	}

	labels := make([]string, len(rows))
	counts := make([]opts.BarData, len(rows))
	speeds := make([]opts.LineData, len(rows))
	travel := make([]opts.LineData, len(rows))
	for i, m := range rows {
		r := m.Rounded()
		labels[i] = r.Interval
		counts[i] = opts.BarData{Value: r.VehicleCount}
		speeds[i] = opts.LineData{Value: r.AvgSpeed}
		travel[i] = opts.LineData{Value: r.AvgTravelTime}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicle Count", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Interval (s)"}),
	)
	bar.SetXAxis(labels).
		AddSeries("vehicles", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	speed := lineChart("Average Speed", "m/s", labels, "avg_speed", speeds)
	tt := lineChart("Average Travel Time", "s", labels, "avg_travel_time_sec", travel)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(bar, speed, tt)
	return page.Render(w)
}

// WriteDashboard renders the dashboard to path.
func WriteDashboard(path, title string, rows []core.IntervalMetrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderDashboard(f, title, rows); err != nil {
		f.Close()
		return fmt.Errorf("render dashboard: %w", err)
	}
	return f.Close()
}

func lineChart(title, unit string, labels []string, series string, data []opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)
	line.SetXAxis(labels).AddSeries(series, data)
	return line
}
