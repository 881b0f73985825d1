// Package indicator provides the streaming calculators strategies use to
// build their lines.
//
// Every calculator receives one value at a time and reports a value once
// enough data has been accumulated. Build replays a finite series through a
// calculator into a line.Line, which is how strategies recompute full lines
// from a candle array on every call.
package indicator

import (
	"github.com/Rapprise/b2s-trader-sub002/internal/line"
)

// Indicator is the interface for single-input calculators (SMA, EMA, RSI, StdDev).
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next value and recalculates.
	Update(value float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears all state so the calculator can replay a new series.
	Reset()
}

// Build resets ind, replays values through it, and appends every ready value
// to out. out is cleared first.
func Build(ind Indicator, values []float64, out *line.Line) {
	out.Clear()
	ind.Reset()
	for _, v := range values {
		ind.Update(v)
		if ind.Ready() {
			out.Add(ind.Value())
		}
	}
}

// Series replays values through ind and returns the ready values.
func Series(ind Indicator, values []float64) []float64 {
	l := line.New(len(values))
	Build(ind, values, l)
	return l.Values()
}
