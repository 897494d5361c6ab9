// Package spacetime derives per-vehicle cumulative distance series for
// time-space diagrams.
package spacetime

import (
	"math"
	"sort"

	"github.com/OCAP2/droneview/pkg/core"
)

// Point is one sample of a vehicle's series.
type Point struct {
	Time     float64
	Distance float64
}

// Series is the cumulative travelled distance of one vehicle.
type Series struct {
	VehicleID string
	Points    []Point
}

// Build groups log by vehicle, orders each group by time and accumulates
// the Euclidean distance between consecutive positions. Vehicles with a
// single sample are skipped. Series are ordered by vehicle id.
func Build(log []core.Observation) []Series {
	groups := make(map[string][]core.Observation)
	for _, o := range log {
		groups[o.VehicleID] = append(groups[o.VehicleID], o)
	}

	ids := make([]string, 0, len(groups))
	for id, g := range groups {
		if len(g) > 1 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]Series, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Time < g[j].Time })

		pts := make([]Point, len(g))
		dist := 0.0
		for i, o := range g {
			if i > 0 {
				dist += math.Hypot(o.X-g[i-1].X, o.Y-g[i-1].Y)
			}
			pts[i] = Point{Time: o.Time, Distance: dist}
		}
		out = append(out, Series{VehicleID: id, Points: pts})
	}
	return out
}

// Total returns the distance at the last sample.
func (s Series) Total() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Distance
}
