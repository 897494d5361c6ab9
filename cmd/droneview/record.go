package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OCAP2/droneview/internal/aggregate"
	"github.com/OCAP2/droneview/internal/camera"
	"github.com/OCAP2/droneview/internal/config"
	"github.com/OCAP2/droneview/internal/dispatcher"
	"github.com/OCAP2/droneview/internal/influx"
	"github.com/OCAP2/droneview/internal/logging"
	"github.com/OCAP2/droneview/internal/monitor"
	"github.com/OCAP2/droneview/internal/recorder"
	"github.com/OCAP2/droneview/internal/render"
	"github.com/OCAP2/droneview/internal/runner"
	"github.com/OCAP2/droneview/internal/simulator"
	"github.com/OCAP2/droneview/internal/storage"
	"github.com/OCAP2/droneview/internal/table"
	"github.com/OCAP2/droneview/internal/traci"
	"github.com/OCAP2/droneview/pkg/core"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var recordFlags = map[string]string{
	"center-x":    "camera.centerX",
	"center-y":    "camera.centerY",
	"velocity-x":  "camera.velocityX",
	"velocity-y":  "camera.velocityY",
	"scale":       "camera.scale",
	"width":       "camera.imageWidth",
	"height":      "camera.imageHeight",
	"unbounded":   "camera.unbounded",
	"source":      "simulator.type",
	"sumo-binary": "simulator.sumoBinary",
	"sumo-config": "simulator.sumoConfig",
	"host":        "simulator.host",
	"port":        "simulator.port",
	"step-length": "simulator.stepLength",
	"max-steps":   "simulator.maxSteps",
	"replay":      "simulator.replayFile",
	"bin-width":   "aggregation.binWidth",
	"workers":     "aggregation.workers",
	"output-dir":  "output.dir",
	"frames":      "output.renderFrames",
	"storage":     "storage.type",
}

func recordCommand(ctx context.Context, e dispatcher.Event) error {
	fs := pflag.NewFlagSet("record", pflag.ContinueOnError)
	fs.Float64("center-x", 288.84, "camera center x in meters")
	fs.Float64("center-y", 187.33, "camera center y in meters")
	fs.Float64("velocity-x", 0, "camera velocity x in m/s")
	fs.Float64("velocity-y", 0, "camera velocity y in m/s")
	fs.Float64("scale", 5, "pixels per meter")
	fs.Int("width", 1920, "image width in pixels")
	fs.Int("height", 1080, "image height in pixels")
	fs.Bool("unbounded", false, "record every vehicle regardless of the frame")
	fs.String("source", "traci", "simulator source: traci or replay")
	fs.String("sumo-binary", "sumo", "simulator binary; empty attaches to a running server")
	fs.String("sumo-config", "", "simulator configuration file")
	fs.String("host", "localhost", "TraCI host")
	fs.Int("port", 8813, "TraCI port")
	fs.Float64("step-length", 1, "seconds per simulation step")
	fs.Int("max-steps", 0, "stop after this many steps; 0 runs to the end")
	fs.String("replay", "", "trajectory table to replay (.csv or .xlsx)")
	fs.Int("bin-width", 60, "aggregation interval in seconds")
	fs.Int("workers", 0, "aggregation workers; 0 uses GOMAXPROCS")
	fs.String("output-dir", "drone_output", "output directory")
	fs.Bool("frames", false, "render one PNG per step")
	fs.String("storage", "memory", "storage backend: memory, sqlite, postgres or websocket")
	name := fs.String("name", "", "run name (default drone_<start time>)")
	statusFile := fs.String("status-file", "", "rewrite a JSON status file while recording")

	if err := setup(fs, e.Args, recordFlags); err != nil {
		return err
	}

	cfg := config.Get()
	if err := config.Validate(cfg); err != nil {
		return err
	}

	cam, err := camera.New(camera.Settings{
		Center:   geom.XY{X: cfg.Camera.CenterX, Y: cfg.Camera.CenterY},
		Velocity: geom.XY{X: cfg.Camera.VelocityX, Y: cfg.Camera.VelocityY},
		Frame: camera.Frame{
			Width:  cfg.Camera.ImageWidth,
			Height: cfg.Camera.ImageHeight,
			Scale:  cfg.Camera.Scale,
		},
		StepLength: cfg.Simulator.StepLength,
		Unbounded:  cfg.Camera.Unbounded,
	})
	if err != nil {
		return err
	}

	agg, err := aggregate.New(cfg.Aggregation.BinWidth, aggregate.WithWorkers(cfg.Aggregation.Workers))
	if err != nil {
		return err
	}

	out := runner.NewOutputs(cfg.Output, Logger)

	var renderer render.Renderer = render.Nop{}
	var frames *render.PNG
	if cfg.Output.RenderFrames {
		if frames, err = render.NewPNG(out.FramesDir()); err != nil {
			return err
		}
		renderer = frames
	}

	trajectories, err := table.NewTrajectoryWriter(out.TrajectoriesPath(), 0)
	if err != nil {
		return err
	}
	defer trajectories.Close()

	backend, err := createStorageBackend(cfg.Storage, cfg.Output.Dir)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Warn("Failed to close storage backend", "error", err)
		}
	}()

	start := time.Now()
	run := &core.Run{
		ID:         uuid.NewString(),
		Name:       *name,
		Source:     cfg.Simulator.Type,
		StartTime:  start,
		StepLength: cfg.Simulator.StepLength,
		BinWidth:   cfg.Aggregation.BinWidth,
		Camera:     cam.Settings(),
	}
	if run.Name == "" {
		run.Name = "drone_" + start.Format("20060102_150405")
	}

	var publisher runner.Publisher
	if viper.GetBool("influx.enabled") {
		m := influx.NewManager(
			logging.NewZerolog(logWriter(), viper.GetString("logLevel")),
			filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_%s.influx.gz", AppName, start.Format("20060102_150405"))),
		)
		m.RunID = run.ID
		if err := m.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB disabled", "error", err)
		} else {
			publisher = m
			defer func() {
				if err := m.Close(); err != nil {
					Logger.Warn("Failed to close InfluxDB manager", "error", err)
				}
			}()
		}
	}

	src, err := openSource(ctx, cfg.Simulator)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			Logger.Warn("Failed to close simulator source", "error", err)
		}
	}()

	deps := runner.Dependencies{
		Source:     src,
		Camera:     cam,
		Aggregator: agg,
		Renderer:   renderer,
		Backend:    backend,
		Publisher:  publisher,
		Sinks:      []recorder.Sink{trajectories},
		Session:    sessionCtx,
		Logger:     Logger,
	}
	if OTelProvider != nil {
		deps.Meter = OTelProvider.Meter("github.com/OCAP2/droneview/cmd/droneview")
	}
	r, err := runner.New(deps)
	if err != nil {
		return err
	}

	mon := monitor.NewService(monitor.Dependencies{
		Logger:     Logger,
		Session:    sessionCtx,
		Recorder:   r.Recorder(),
		Backend:    backend,
		StatusFile: *statusFile,
	})
	mon.Start()
	res, err := r.Run(ctx, run)
	mon.Stop()
	if err != nil {
		return err
	}

	if err := trajectories.Close(); err != nil {
		return fmt.Errorf("close trajectories: %w", err)
	}

	files, err := out.WriteMetrics(run.Name, res.Metrics, stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "\nVisible trajectories saved in: %s\n", trajectories.Path())
	if frames != nil {
		fmt.Fprintf(stdout, "Frames saved in: %s (%d)\n", out.FramesDir(), frames.Written())
	}
	for _, f := range files {
		fmt.Fprintf(stdout, "Saved: %s\n", f)
	}
	if ex, ok := backend.(storage.Exporter); ok {
		for _, f := range ex.ExportedFiles() {
			Logger.Info("Run exported", "file", f)
		}
	}
	if res.Interrupted {
		Logger.Warn("Outputs cover the steps recorded before the interrupt", "steps", res.Steps)
	}
	return nil
}

func openSource(ctx context.Context, sc config.SimulatorConfig) (simulator.Source, error) {
	switch sc.Type {
	case "replay":
		src, err := simulator.OpenReplay(sc.ReplayFile)
		if err != nil {
			return nil, err
		}
		Logger.Info("Replaying trajectory table", "file", sc.ReplayFile, "steps", src.Len())
		return src, nil
	default:
		return traci.Launch(ctx, traci.Config{
			Binary:      sc.SumoBinary,
			ConfigFile:  sc.SumoConfig,
			Host:        sc.Host,
			Port:        sc.Port,
			StepLength:  sc.StepLength,
			MaxSteps:    sc.MaxSteps,
			DialTimeout: sc.DialTimeout,
		}, Logger)
	}
}
