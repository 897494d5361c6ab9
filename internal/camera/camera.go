// Package camera implements the observation window of the drone camera:
// the visibility test, the world-to-pixel projection and the per-step
// camera state.
package camera

import (
	"github.com/OCAP2/droneview/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Window is the rectangular region of the world plane the camera sees.
// An unbounded window admits every position.
type Window struct {
	Center     geom.XY
	HalfWidth  float64
	HalfHeight float64
	Unbounded  bool
}

// UnboundedWindow returns a window that records every vehicle.
func UnboundedWindow(center geom.XY) Window {
	return Window{Center: center, Unbounded: true}
}

// Contains reports whether (x, y) lies inside the window. All four edges
// are inclusive.
func (w Window) Contains(x, y float64) bool {
	if w.Unbounded {
		return true
	}
	return x >= w.Center.X-w.HalfWidth && x <= w.Center.X+w.HalfWidth &&
		y >= w.Center.Y-w.HalfHeight && y <= w.Center.Y+w.HalfHeight
}

// Coverage returns the width and height in meters covered by the window.
func (w Window) Coverage() (width, height float64) {
	return 2 * w.HalfWidth, 2 * w.HalfHeight
}

// Frame describes the output raster and its pixels-per-meter scale.
type Frame struct {
	Width  int
	Height int
	Scale  float64
}

// HalfExtents derives the window half-extents in meters covered by the
// frame at its scale.
func (f Frame) HalfExtents() (halfWidth, halfHeight float64) {
	return float64(f.Width) / (2 * f.Scale), float64(f.Height) / (2 * f.Scale)
}

// Project maps a world position to a pixel of the frame centered on the
// window center. The y axis is flipped. Results are truncated toward zero
// and may fall outside the frame for positions outside the window.
func Project(x, y float64, center geom.XY, f Frame) core.Pixel {
	px := float64(f.Width)/2 + (x-center.X)*f.Scale
	py := float64(f.Height)/2 - (y-center.Y)*f.Scale
	return core.Pixel{X: int(px), Y: int(py)}
}

// Unproject is the inverse of Project for the pixel's exact position.
func Unproject(px, py float64, center geom.XY, f Frame) geom.XY {
	return geom.XY{
		X: center.X + (px-float64(f.Width)/2)/f.Scale,
		Y: center.Y - (py-float64(f.Height)/2)/f.Scale,
	}
}
