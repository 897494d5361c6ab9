// Package runner drives a recording: it pulls snapshots from a simulator
// source, filters them through the camera, renders frames, records the
// visible vehicles and aggregates them into interval metrics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/droneview/internal/aggregate"
	"github.com/OCAP2/droneview/internal/camera"
	"github.com/OCAP2/droneview/internal/recorder"
	"github.com/OCAP2/droneview/internal/render"
	"github.com/OCAP2/droneview/internal/session"
	"github.com/OCAP2/droneview/internal/simulator"
	"github.com/OCAP2/droneview/internal/storage"
	"github.com/OCAP2/droneview/pkg/core"
)

const instrumentationName = "github.com/OCAP2/droneview/internal/runner"

// Publisher receives live step counts and closed interval rows.
// influx.Manager satisfies it.
type Publisher interface {
	RecordStep(simTime float64, visible, hidden int) error
	RecordMetrics(m *core.IntervalMetrics) error
}

// Dependencies holds all dependencies for a Runner. Only Source, Camera
// and Aggregator are required.
type Dependencies struct {
	Source     simulator.Source
	Camera     camera.Camera
	Aggregator *aggregate.Aggregator
	Renderer   render.Renderer
	Backend    storage.Backend
	Publisher  Publisher
	Sinks      []recorder.Sink // extra observation sinks, e.g. the live CSV
	Session    *session.Context
	Meter      metric.Meter
	Logger     *slog.Logger
}

// Result is what a finished (or interrupted) recording produced.
type Result struct {
	Run         *core.Run
	Steps       int
	Log         []core.Observation
	Metrics     []core.IntervalMetrics // batch aggregation of Log
	Live        []core.IntervalMetrics // rows emitted while recording
	Camera      camera.Camera          // state after the last step
	Interrupted bool
}

// Runner executes one recording at a time.
type Runner struct {
	deps Dependencies
	rec  *recorder.Recorder

	steps   metric.Int64Counter
	visible metric.Int64Counter
	hidden  metric.Int64Counter
}

// New validates deps and creates the OTel instruments.
func New(deps Dependencies) (*Runner, error) {
	if deps.Source == nil {
		return nil, errors.New("runner: source is required")
	}
	if deps.Aggregator == nil {
		return nil, errors.New("runner: aggregator is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = render.Nop{}
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(instrumentationName)
	}

	sinks := make([]recorder.Sink, 0, len(deps.Sinks)+1)
	if deps.Backend != nil {
		sinks = append(sinks, deps.Backend)
	}
	sinks = append(sinks, deps.Sinks...)

	rec, err := recorder.New(deps.Meter, sinks...)
	if err != nil {
		return nil, err
	}

	r := &Runner{deps: deps, rec: rec}
	m := deps.Meter
	if r.steps, err = m.Int64Counter("droneview.steps",
		metric.WithDescription("Simulation steps processed")); err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}
	if r.visible, err = m.Int64Counter("droneview.observations.visible",
		metric.WithDescription("Vehicle samples inside the camera window")); err != nil {
		return nil, fmt.Errorf("creating visible counter: %w", err)
	}
	if r.hidden, err = m.Int64Counter("droneview.observations.hidden",
		metric.WithDescription("Vehicle samples outside the camera window")); err != nil {
		return nil, fmt.Errorf("creating hidden counter: %w", err)
	}
	return r, nil
}

// Recorder exposes the trajectory log of the current run.
func (r *Runner) Recorder() *recorder.Recorder {
	return r.rec
}

// Run records until the source is exhausted or ctx is cancelled. A
// cancelled run keeps what it recorded and still aggregates it.
func (r *Runner) Run(ctx context.Context, run *core.Run) (*Result, error) {
	log := r.deps.Logger
	backend := r.deps.Backend

	r.rec.Reset()
	r.deps.Session.Start(run)
	defer r.deps.Session.End()

	if backend != nil {
		if err := backend.StartRun(run); err != nil {
			return nil, fmt.Errorf("start run: %w", err)
		}
	}

	res := &Result{Run: run}
	stream := r.deps.Aggregator.NewStream()
	cam := r.deps.Camera
	r.deps.Renderer.Setup(cam.Frame())

	log.InfoContext(ctx, "Recording started", "run", run.ID, "source", run.Source, "binWidth", r.deps.Aggregator.BinWidth())

	loopErr := r.loop(ctx, &cam, stream, res)
	if loopErr != nil && ctx.Err() != nil {
		res.Interrupted = true
		loopErr = nil
		log.WarnContext(ctx, "Recording interrupted", "steps", res.Steps)
	}

	// the tail and the batch pass run on whatever was recorded, even
	// after cancellation
	aggCtx := context.WithoutCancel(ctx)

	tail := stream.Close()
	res.Live = append(res.Live, tail...)
	res.Camera = cam
	res.Log = r.rec.Log()

	if loopErr == nil {
		r.publish(aggCtx, tail)
		metrics, err := r.deps.Aggregator.Aggregate(aggCtx, res.Log)
		if err != nil {
			loopErr = fmt.Errorf("aggregate: %w", err)
		}
		res.Metrics = metrics
	}

	r.logCoverage(aggCtx, cam)

	if backend != nil {
		if err := backend.EndRun(); err != nil {
			log.ErrorContext(aggCtx, "Failed to end run", "error", err)
			if loopErr == nil {
				loopErr = fmt.Errorf("end run: %w", err)
			}
		}
	}

	log.InfoContext(aggCtx, "Recording finished",
		"steps", res.Steps,
		"observations", len(res.Log),
		"intervals", len(res.Metrics),
	)
	return res, loopErr
}

func (r *Runner) loop(ctx context.Context, cam *camera.Camera, stream *aggregate.Stream, res *Result) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, ok, err := r.deps.Source.Next(ctx)
		if err != nil {
			return fmt.Errorf("step %d: %w", res.Steps, err)
		}
		if !ok {
			return nil
		}

		if err := r.step(ctx, *cam, snap, res.Steps, stream, res); err != nil {
			return err
		}
		*cam = cam.Advance()
		res.Steps++
	}
}

// step processes one snapshot with the camera state of that step.
func (r *Runner) step(ctx context.Context, cam camera.Camera, snap core.Snapshot, frame int, stream *aggregate.Stream, res *Result) error {
	r.deps.Session.Tick(snap.Step, snap.Time)

	sightings := cam.Observe(snap)
	hidden := len(snap.Vehicles) - len(sightings)

	r.deps.Renderer.Begin(frame)
	for _, s := range sightings {
		r.deps.Renderer.Draw(s.Pixel)

		if err := r.rec.Record(ctx, s.Observation); err != nil {
			r.deps.Logger.WarnContext(ctx, "Observation sink failed", "vehicle", s.Observation.VehicleID, "error", err)
		}

		closed, err := stream.Add(s.Observation)
		if err != nil {
			return err
		}
		res.Live = append(res.Live, closed...)
		r.publish(ctx, closed)
	}
	if err := r.deps.Renderer.End(); err != nil {
		return fmt.Errorf("render frame %d: %w", frame, err)
	}

	r.steps.Add(ctx, 1)
	r.visible.Add(ctx, int64(len(sightings)))
	r.hidden.Add(ctx, int64(hidden))

	if p := r.deps.Publisher; p != nil {
		if err := p.RecordStep(snap.Time, len(sightings), hidden); err != nil {
			r.deps.Logger.DebugContext(ctx, "Step publish failed", "error", err)
		}
	}
	return nil
}

// publish forwards closed rows at full precision.
func (r *Runner) publish(ctx context.Context, rows []core.IntervalMetrics) {
	for i := range rows {
		row := &rows[i]
		if b := r.deps.Backend; b != nil {
			if err := b.RecordMetrics(row); err != nil {
				r.deps.Logger.WarnContext(ctx, "Failed to store interval", "interval", row.Interval, "error", err)
			}
		}
		if p := r.deps.Publisher; p != nil {
			if err := p.RecordMetrics(row); err != nil {
				r.deps.Logger.DebugContext(ctx, "Interval publish failed", "interval", row.Interval, "error", err)
			}
		}
		r.deps.Logger.DebugContext(ctx, "Interval closed", "interval", row.Interval, "vehicles", row.VehicleCount)
	}
}

func (r *Runner) logCoverage(ctx context.Context, cam camera.Camera) {
	w := cam.Window()
	if w.Unbounded {
		r.deps.Logger.InfoContext(ctx, "Frame coverage unbounded")
		return
	}
	width, height := w.Coverage()
	topLeft, bottomRight := cam.Footprint()
	r.deps.Logger.InfoContext(ctx, "Frame coverage",
		"coverage", fmt.Sprintf("%.0f m x %.0f m", width, height),
		"width", width, "height", height,
		"topLeft", fmt.Sprintf("%.2f,%.2f", topLeft.X, topLeft.Y),
		"bottomRight", fmt.Sprintf("%.2f,%.2f", bottomRight.X, bottomRight.Y))
}
