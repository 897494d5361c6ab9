package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/droneview/internal/aggregate"
	"github.com/OCAP2/droneview/internal/chart"
	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/internal/dispatcher"
	"github.com/OCAP2/droneview/internal/geo"
	"github.com/OCAP2/droneview/internal/runner"
	"github.com/OCAP2/droneview/internal/spacetime"
	"github.com/OCAP2/droneview/internal/table"
	"github.com/OCAP2/droneview/pkg/core"

	"github.com/spf13/pflag"
)

// readInput parses the remaining flags, runs check against the loaded
// config and then loads the single trajectory table argument.
func readInput(fs *pflag.FlagSet, args []string, keys map[string]string, check func() error) (string, []core.Observation, error) {
	if err := setup(fs, args, keys); err != nil {
		return "", nil, err
	}
	if check != nil {
		if err := check(); err != nil {
			return "", nil, err
		}
	}
	if fs.NArg() != 1 {
		return "", nil, fmt.Errorf("%s: expected one trajectory table, got %d arguments", fs.Name(), fs.NArg())
	}
	path := fs.Arg(0)
	log, err := table.ReadTrajectories(path)
	if err != nil {
		return path, nil, err
	}
	Logger.Info("Loaded trajectory table", "file", path, "rows", len(log))
	return path, log, nil
}

func baseTitle(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func aggregateCommand(ctx context.Context, e dispatcher.Event) error {
	fs := pflag.NewFlagSet("aggregate", pflag.ContinueOnError)
	fs.Int("bin-width", 60, "aggregation interval in seconds")
	fs.Int("workers", 0, "aggregation workers; 0 uses GOMAXPROCS")
	fs.String("output-dir", "drone_output", "output directory")
	fs.String("metrics-file", "traffic_metrics.csv", "metrics table (.csv or .xlsx)")
	fs.String("chart-file", "traffic_metrics.png", "metrics chart; empty skips it")
	fs.String("dashboard-file", "traffic_metrics.html", "metrics dashboard; empty skips it")

	var agg *aggregate.Aggregator
	path, log, err := readInput(fs, e.Args, map[string]string{
		"bin-width":      "aggregation.binWidth",
		"workers":        "aggregation.workers",
		"output-dir":     "output.dir",
		"metrics-file":   "output.metricsFile",
		"chart-file":     "output.chartFile",
		"dashboard-file": "output.dashboardFile",
	}, func() (err error) {
		ac := config.GetAggregationConfig()
		agg, err = aggregate.New(ac.BinWidth, aggregate.WithWorkers(ac.Workers))
		return err
	})
	if err != nil {
		return err
	}

	rows, err := agg.Aggregate(ctx, log)
	if err != nil {
		return err
	}

	files, err := runner.NewOutputs(config.GetOutputConfig(), Logger).WriteMetrics(baseTitle(path), rows, stdout)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	for _, f := range files {
		fmt.Fprintf(stdout, "Saved: %s\n", f)
	}
	return nil
}

func spacetimeCommand(_ context.Context, e dispatcher.Event) error {
	fs := pflag.NewFlagSet("spacetime", pflag.ContinueOnError)
	fs.String("output-dir", "drone_output", "output directory")
	out := fs.String("out", "spacetime.png", "diagram file, relative to the output directory")

	_, log, err := readInput(fs, e.Args, map[string]string{"output-dir": "output.dir"}, nil)
	if err != nil {
		return err
	}

	series := spacetime.Build(log)
	path := runner.NewOutputs(config.GetOutputConfig(), Logger).Path(*out)
	if err := chart.WriteSpaceTimePNG(path, series); err != nil {
		return err
	}
	Logger.Info("Time-space diagram written", "file", path, "vehicles", len(series))
	fmt.Fprintf(stdout, "Saved: %s\n", path)
	return nil
}

func geojsonCommand(_ context.Context, e dispatcher.Event) error {
	fs := pflag.NewFlagSet("geojson", pflag.ContinueOnError)
	fs.String("output-dir", "drone_output", "output directory")
	fs.Int("epsg", 0, "EPSG code of the simulator coordinates; 0 keeps local meters")
	fs.Float64("offset-x", 0, "network offset x subtracted before projecting")
	fs.Float64("offset-y", 0, "network offset y subtracted before projecting")
	out := fs.String("out", "trajectories.geojson", "feature collection file, relative to the output directory")

	_, log, err := readInput(fs, e.Args, map[string]string{
		"output-dir": "output.dir",
		"epsg":       "geo.epsg",
		"offset-x":   "geo.offsetX",
		"offset-y":   "geo.offsetY",
	}, func() error {
		if epsg := config.GetGeoConfig().EPSG; epsg < 0 {
			return &core.ConfigError{Field: "geo.epsg", Reason: fmt.Sprintf("must not be negative, got %d", epsg)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	gc := config.GetGeoConfig()
	t := geo.NewTransformer(gc.EPSG, gc.OffsetX, gc.OffsetY)

	path := runner.NewOutputs(config.GetOutputConfig(), Logger).Path(*out)
	if err := geo.WriteFeatures(path, log, t); err != nil {
		return err
	}
	Logger.Info("GeoJSON written", "file", path, "epsg", t.EPSG())
	fmt.Fprintf(stdout, "Saved: %s\n", path)
	return nil
}
