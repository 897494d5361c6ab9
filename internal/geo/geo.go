// Package geo converts simulator network coordinates to WGS84 and exports
// trajectories as GeoJSON.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a transform produces no usable
// position.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Transformer maps network x/y to lon/lat. The network offset is removed
// first (SUMO adds netOffset to projected coordinates), then the result is
// transformed from EPSG to 4326. EPSG 0 keeps coordinates local.
type Transformer struct {
	epsg    int
	offsetX float64
	offsetY float64
	fn      func(a, b, c float64) (float64, float64, float64)
}

// NewTransformer builds a transformer for the given source CRS.
func NewTransformer(epsg int, offsetX, offsetY float64) *Transformer {
	t := &Transformer{epsg: epsg, offsetX: offsetX, offsetY: offsetY}
	if epsg != 0 && epsg != 4326 {
		t.fn = wgs84.EPSG().Transform(epsg, 4326)
	}
	return t
}

// EPSG returns the source CRS code.
func (t *Transformer) EPSG() int {
	return t.epsg
}

// ToLonLat converts one network position.
func (t *Transformer) ToLonLat(x, y float64) (lon, lat float64, err error) {
	x -= t.offsetX
	y -= t.offsetY
	if t.fn == nil {
		return x, y, nil
	}
	lon, lat, _ = t.fn(x, y, 0)
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return 0, 0, fmt.Errorf("EPSG:%d (%g, %g): %w", t.epsg, x, y, ErrInvalidCoordinates)
	}
	return lon, lat, nil
}

// Point converts one network position to a geometry point.
func (t *Transformer) Point(x, y float64) (geom.Point, error) {
	lon, lat, err := t.ToLonLat(x, y)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}}), nil
}
