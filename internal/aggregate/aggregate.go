// Package aggregate turns a trajectory log into fixed-width interval
// traffic metrics.
package aggregate

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/OCAP2/droneview/pkg/core"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DefaultBinWidth is the default interval width in seconds.
const DefaultBinWidth = 60

// Aggregator computes interval metrics over a complete trajectory log.
type Aggregator struct {
	binWidth int
	workers  int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWorkers bounds how many bins are computed concurrently.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// New returns an aggregator for bins of binWidth seconds.
func New(binWidth int, opts ...Option) (*Aggregator, error) {
	if binWidth <= 0 {
		return nil, &core.ConfigError{Field: "aggregation.binWidth", Reason: fmt.Sprintf("must be positive, got %d", binWidth)}
	}
	a := &Aggregator{binWidth: binWidth, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// BinWidth returns the configured width in seconds.
func (a *Aggregator) BinWidth() int {
	return a.binWidth
}

// BinFor returns the bin containing key.
func (a *Aggregator) BinFor(key int) core.TimeBin {
	start := (key / a.binWidth) * a.binWidth
	return core.TimeBin{Start: start, End: start + a.binWidth}
}

// keyed is one validated observation with its bin key.
type keyed struct {
	key int
	obs core.Observation
}

// Aggregate produces one row per non-empty bin in increasing start order.
// The input is not modified. A malformed row aborts the pass with a
// *core.DataError naming it.
func (a *Aggregator) Aggregate(ctx context.Context, log []core.Observation) ([]core.IntervalMetrics, error) {
	if len(log) == 0 {
		return []core.IntervalMetrics{}, nil
	}

	rows, err := normalize(log)
	if err != nil {
		return nil, err
	}

	// rows are sorted by (vehicle, key), so each partition keeps that order.
	partitions := make(map[int][]keyed)
	for _, r := range rows {
		idx := r.key / a.binWidth
		partitions[idx] = append(partitions[idx], r)
	}
	bins := make([]int, 0, len(partitions))
	for idx := range partitions {
		bins = append(bins, idx)
	}
	sort.Ints(bins)

	out := make([]core.IntervalMetrics, len(bins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, idx := range bins {
		part := partitions[idx]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bin := core.TimeBin{Start: idx * a.binWidth, End: (idx + 1) * a.binWidth}
			out[i] = computeBin(bin, part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// normalize validates every row, derives its bin key and returns the rows
// stably sorted by (vehicle id, key).
func normalize(log []core.Observation) ([]keyed, error) {
	rows := make([]keyed, len(log))
	for i, o := range log {
		if err := o.Validate(i); err != nil {
			return nil, err
		}
		rows[i] = keyed{key: o.TimeBinKey(), obs: o}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].obs.VehicleID != rows[j].obs.VehicleID {
			return rows[i].obs.VehicleID < rows[j].obs.VehicleID
		}
		return rows[i].key < rows[j].key
	})
	return rows, nil
}

// computeBin derives the metrics of one bin. rows must be grouped by
// vehicle id.
func computeBin(bin core.TimeBin, rows []keyed) core.IntervalMetrics {
	speeds := make([]float64, len(rows))
	type span struct {
		min, max, n int
	}
	spans := make(map[string]*span)
	order := make([]string, 0)

	for i, r := range rows {
		speeds[i] = r.obs.Speed
		s, ok := spans[r.obs.VehicleID]
		if !ok {
			spans[r.obs.VehicleID] = &span{min: r.key, max: r.key, n: 1}
			order = append(order, r.obs.VehicleID)
			continue
		}
		s.n++
		if r.key < s.min {
			s.min = r.key
		}
		if r.key > s.max {
			s.max = r.key
		}
	}

	var travel []float64
	for _, id := range order {
		s := spans[id]
		if s.n >= 2 && s.max > s.min {
			travel = append(travel, float64(s.max-s.min))
		}
	}

	m := core.IntervalMetrics{
		Interval:     bin.Label(),
		Start:        bin.Start,
		End:          bin.End,
		VehicleCount: len(spans),
		AvgSpeed:     stat.Mean(speeds, nil),
	}
	if len(travel) > 0 {
		m.AvgTravelTime = stat.Mean(travel, nil)
	}
	return m
}
