// Package render draws the per-step drone view frames.
package render

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/OCAP2/droneview/internal/camera"
	"github.com/OCAP2/droneview/pkg/core"
)

// Renderer receives the pixels of visible vehicles, one frame per step.
type Renderer interface {
	Setup(frame camera.Frame)
	Begin(index int)
	Draw(p core.Pixel)
	End() error
}

// Nop discards every frame.
type Nop struct{}

func (Nop) Setup(camera.Frame) {}
func (Nop) Begin(int) {}
func (Nop) Draw(core.Pixel) {}
func (Nop) End() error { return nil }

const (
	// FramePattern names frame files by zero-padded step index.
	FramePattern = "frame_%06d.png"

	borderWidth   = 2
	vehicleWidth  = 8
	vehicleHeight = 16
)

var (
	background   = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	borderColor  = image.NewUniform(color.RGBA{A: 255})
	vehicleColor = image.NewUniform(color.RGBA{R: 255, A: 255})
)

// PNG writes each frame as a PNG file under Dir: a white canvas with a
// black border and a filled red box per vehicle.
type PNG struct {
	dir     string
	img     *image.RGBA
	index   int
	written int
	enc     png.Encoder
}

// NewPNG creates dir and returns a renderer writing into it.
func NewPNG(dir string) (*PNG, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	return &PNG{dir: dir, enc: png.Encoder{CompressionLevel: png.BestSpeed}}, nil
}

// Setup allocates the frame buffer.
func (r *PNG) Setup(frame camera.Frame) {
	r.img = image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
}

// Begin clears the buffer and draws the border.
func (r *PNG) Begin(index int) {
	r.index = index
	b := r.img.Bounds()
	draw.Draw(r.img, b, background, image.Point{}, draw.Src)

	edges := []image.Rectangle{
		image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+borderWidth),
		image.Rect(b.Min.X, b.Max.Y-borderWidth, b.Max.X, b.Max.Y),
		image.Rect(b.Min.X, b.Min.Y, b.Min.X+borderWidth, b.Max.Y),
		image.Rect(b.Max.X-borderWidth, b.Min.Y, b.Max.X, b.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(r.img, e, borderColor, image.Point{}, draw.Src)
	}
}

// Draw fills the vehicle box centered on p, clipped to the frame. Box
// edges are inclusive.
func (r *PNG) Draw(p core.Pixel) {
	box := image.Rect(
		p.X-vehicleWidth/2, p.Y-vehicleHeight/2,
		p.X+vehicleWidth/2+1, p.Y+vehicleHeight/2+1,
	).Intersect(r.img.Bounds())
	if box.Empty() {
		return
	}
	draw.Draw(r.img, box, vehicleColor, image.Point{}, draw.Src)
}

// End encodes the frame to disk.
func (r *PNG) End() error {
	path := r.Path(r.index)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := r.enc.Encode(w, r.img); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", r.index, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	r.written++
	return f.Close()
}

// Path returns the file a frame index is written to.
func (r *PNG) Path(index int) string {
	return filepath.Join(r.dir, fmt.Sprintf(FramePattern, index))
}

// Written returns how many frames were saved.
func (r *PNG) Written() int {
	return r.written
}
