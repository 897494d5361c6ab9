package table

import (
	"fmt"
	"io"
	"strings"

	"github.com/OCAP2/droneview/pkg/core"
)

// PrintMetrics writes a fixed-width summary table of rows to w.
func PrintMetrics(w io.Writer, rows []core.IntervalMetrics) error {
	const rule = 60
	if _, err := fmt.Fprintf(w, "%-15s %-10s %-18s %-10s\n", "Interval", "Vehicles", "Avg Travel Time", "Avg Speed"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", rule)); err != nil {
		return err
	}
	for _, m := range rows {
		r := m.Rounded()
		if _, err := fmt.Fprintf(w, "%-15s %-10d %-18.2f %-10.2f\n", r.Interval, r.VehicleCount, r.AvgTravelTime, r.AvgSpeed); err != nil {
			return err
		}
	}
	return nil
}
