package geo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/OCAP2/droneview/pkg/core"
)

// Features builds one feature per vehicle: a LineString through its
// time-ordered positions, or a Point when the vehicle was seen once.
// Features are ordered by vehicle id.
func Features(log []core.Observation, t *Transformer) (geom.GeoJSONFeatureCollection, error) {
	groups := make(map[string][]core.Observation)
	for _, o := range log {
		groups[o.VehicleID] = append(groups[o.VehicleID], o)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fc := make(geom.GeoJSONFeatureCollection, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Time < g[j].Time })

		geometry, err := trackGeometry(g, t)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", id, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: geometry,
			ID:       id,
			Properties: map[string]interface{}{
				"vehId":     id,
				"samples":   len(g),
				"startTime": g[0].Time,
				"endTime":   g[len(g)-1].Time,
				"lane":      g[len(g)-1].LaneID,
			},
		})
	}
	return fc, nil
}

func trackGeometry(g []core.Observation, t *Transformer) (geom.Geometry, error) {
	if len(g) == 1 {
		pt, err := t.Point(g[0].X, g[0].Y)
		if err != nil {
			return geom.Geometry{}, err
		}
		return pt.AsGeometry(), nil
	}

	flat := make([]float64, 0, len(g)*2)
	for _, o := range g {
		lon, lat, err := t.ToLonLat(o.X, o.Y)
		if err != nil {
			return geom.Geometry{}, err
		}
		flat = append(flat, lon, lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)).AsGeometry(), nil
}

// WriteFeatures writes the trajectory feature collection to path.
func WriteFeatures(path string, log []core.Observation, t *Transformer) error {
	fc, err := Features(log, t)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("marshal feature collection: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
