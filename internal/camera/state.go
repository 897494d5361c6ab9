package camera

import (
	"fmt"

	"github.com/OCAP2/droneview/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Settings is the static camera configuration.
type Settings struct {
	Center     geom.XY
	Velocity   geom.XY // meters per second
	Frame      Frame
	StepLength float64 // seconds per simulation step
	Unbounded  bool
}

// Camera is the camera state at one simulation step. It is a value:
// Advance returns the next state and leaves the receiver untouched.
type Camera struct {
	window     Window
	frame      Frame
	velocity   geom.XY
	stepLength float64
	step       int
}

// Sighting is one vehicle the camera saw in a step.
type Sighting struct {
	Observation core.Observation
	Pixel       core.Pixel
}

// New validates s and returns the camera state for step 0.
func New(s Settings) (Camera, error) {
	if s.Frame.Width <= 0 {
		return Camera{}, &core.ConfigError{Field: "camera.imageWidth", Reason: fmt.Sprintf("must be positive, got %d", s.Frame.Width)}
	}
	if s.Frame.Height <= 0 {
		return Camera{}, &core.ConfigError{Field: "camera.imageHeight", Reason: fmt.Sprintf("must be positive, got %d", s.Frame.Height)}
	}
	if s.Frame.Scale <= 0 {
		return Camera{}, &core.ConfigError{Field: "camera.scale", Reason: fmt.Sprintf("must be positive, got %g", s.Frame.Scale)}
	}
	if s.StepLength <= 0 {
		return Camera{}, &core.ConfigError{Field: "simulator.stepLength", Reason: fmt.Sprintf("must be positive, got %g", s.StepLength)}
	}

	w := UnboundedWindow(s.Center)
	if !s.Unbounded {
		hw, hh := s.Frame.HalfExtents()
		w, _ = NewWindow(s.Center, hw, hh)
	}

	return Camera{
		window:     w,
		frame:      s.Frame,
		velocity:   s.Velocity,
		stepLength: s.StepLength,
	}, nil
}

// NewWindow builds a bounded window, rejecting non-positive half-extents.
func NewWindow(center geom.XY, halfWidth, halfHeight float64) (Window, error) {
	if halfWidth <= 0 || halfHeight <= 0 {
		return Window{}, &core.ConfigError{
			Field:  "camera.window",
			Reason: fmt.Sprintf("half-extents must be positive, got %gx%g", halfWidth, halfHeight),
		}
	}
	return Window{Center: center, HalfWidth: halfWidth, HalfHeight: halfHeight}, nil
}

// Window returns the window of this step.
func (c Camera) Window() Window { return c.window }

// Frame returns the output raster settings.
func (c Camera) Frame() Frame { return c.frame }

// Step returns how many times the camera has advanced.
func (c Camera) Step() int { return c.step }

// Visible reports whether the vehicle is inside this step's window.
func (c Camera) Visible(v core.VehicleState) bool {
	return c.window.Contains(v.X, v.Y)
}

// Project maps a world position using this step's center.
func (c Camera) Project(x, y float64) core.Pixel {
	return Project(x, y, c.window.Center, c.frame)
}

// Footprint returns the world positions under the frame's top-left and
// bottom-right corners for this step.
func (c Camera) Footprint() (topLeft, bottomRight geom.XY) {
	topLeft = Unproject(0, 0, c.window.Center, c.frame)
	bottomRight = Unproject(float64(c.frame.Width), float64(c.frame.Height), c.window.Center, c.frame)
	return topLeft, bottomRight
}

// Observe filters one snapshot. Every vehicle is tested against the same
// window; sightings keep the snapshot's vehicle order.
func (c Camera) Observe(snap core.Snapshot) []Sighting {
	sightings := make([]Sighting, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		if !c.Visible(v) {
			continue
		}
		sightings = append(sightings, Sighting{
			Observation: core.ObservationAt(snap.Time, v),
			Pixel:       c.Project(v.X, v.Y),
		})
	}
	return sightings
}

// Advance returns the camera state for the next step, its center moved by
// velocity * stepLength.
func (c Camera) Advance() Camera {
	next := c
	next.window.Center = geom.XY{
		X: c.window.Center.X + c.velocity.X*c.stepLength,
		Y: c.window.Center.Y + c.velocity.Y*c.stepLength,
	}
	next.step = c.step + 1
	return next
}

// Settings returns the core representation stored with a run.
func (c Camera) Settings() core.CameraSettings {
	return core.CameraSettings{
		CenterX:     c.window.Center.X,
		CenterY:     c.window.Center.Y,
		VelocityX:   c.velocity.X,
		VelocityY:   c.velocity.Y,
		Scale:       c.frame.Scale,
		ImageWidth:  c.frame.Width,
		ImageHeight: c.frame.Height,
		Unbounded:   c.window.Unbounded,
	}
}
