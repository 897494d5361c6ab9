// pkg/core/run.go
package core

import "time"

// CameraSettings captures the camera configuration a run was recorded with.
type CameraSettings struct {
	CenterX     float64 `json:"centerX"`
	CenterY     float64 `json:"centerY"`
	VelocityX   float64 `json:"velocityX"`
	VelocityY   float64 `json:"velocityY"`
	Scale       float64 `json:"scale"`
	ImageWidth  int     `json:"imageWidth"`
	ImageHeight int     `json:"imageHeight"`
	Unbounded   bool    `json:"unbounded"`
}

// Run represents one recording session
type Run struct {
	ID         string
	Name       string
	Source     string
	StartTime  time.Time
	StepLength float64
	BinWidth   int
	Camera     CameraSettings
}

// Pixel is a raster coordinate; origin top-left, y grows downward.
type Pixel struct {
	X int
	Y int
}
