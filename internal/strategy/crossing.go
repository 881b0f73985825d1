package strategy

import (
	"github.com/pkg/errors"

	"github.com/Rapprise/b2s-trader-sub002/internal/line"
)

// CrossingDetector finds a crossing between a main line and a signal line.
//
// The two lines are tail-aligned: the k-th point from the end of each line
// belongs to the same bar. The detector compares the point Interval bars back
// ("from") with the newest point ("to"):
//
//	buy:  from(main) < from(signal) && to(main) > to(signal)
//	sell: from(main) > from(signal) && to(main) < to(signal)
//
// A transition is suppressed when the previously recorded crossing point of
// that side is found among the trailing Interval points of the main line, or
// when the side's bound check fails.
type CrossingDetector struct {
	Interval      int
	LastBuyPoint  *float64
	LastSellPoint *float64

	// CheckTopBound gates sells, CheckBottomBound gates buys. nil passes.
	CheckTopBound    func(main *line.Line) bool
	CheckBottomBound func(main *line.Line) bool
}

// Crossing is the outcome of one detection. Point is to(main) when Buy or
// Sell is set.
type Crossing struct {
	Buy   bool
	Sell  bool
	Point float64
}

// Detect evaluates the crossing rules on main and signal.
func (d CrossingDetector) Detect(main, signal *line.Line) (Crossing, error) {
	if d.Interval < 1 {
		return Crossing{}, errors.Wrapf(ErrStrategy, "crossing interval %d must be positive", d.Interval)
	}
	need := d.Interval + 1
	if main.Size() < need || signal.Size() < need {
		return Crossing{}, errors.Wrapf(ErrSmallAnalyzedPeriod,
			"crossing interval %d needs %d points, main has %d, signal has %d",
			d.Interval, need, main.Size(), signal.Size())
	}

	fromMain, err := main.FromEnd(d.Interval)
	if err != nil {
		return Crossing{}, err
	}
	fromSignal, err := signal.FromEnd(d.Interval)
	if err != nil {
		return Crossing{}, err
	}
	toMain, err := main.Last()
	if err != nil {
		return Crossing{}, err
	}
	toSignal, err := signal.Last()
	if err != nil {
		return Crossing{}, err
	}

	var c Crossing
	switch {
	case fromMain < fromSignal && toMain > toSignal:
		if !isDuplicate(main, d.LastBuyPoint, d.Interval) && passes(d.CheckBottomBound, main) {
			c.Buy = true
			c.Point = toMain
		}
	case fromMain > fromSignal && toMain < toSignal:
		if !isDuplicate(main, d.LastSellPoint, d.Interval) && passes(d.CheckTopBound, main) {
			c.Sell = true
			c.Point = toMain
		}
	}
	return c, nil
}

// isDuplicate reports whether the recorded point is among the trailing n points of l.
func isDuplicate(l *line.Line, recorded *float64, n int) bool {
	return recorded != nil && l.Contains(*recorded, n)
}

func passes(check func(*line.Line) bool, main *line.Line) bool {
	return check == nil || check(main)
}

// ReachedTop returns a bound check that passes when any of the trailing n
// points is at or above level.
func ReachedTop(level float64, n int) func(*line.Line) bool {
	return func(l *line.Line) bool {
		for _, v := range l.Tail(n) {
			if v >= level {
				return true
			}
		}
		return false
	}
}

// ReachedBottom returns a bound check that passes when any of the trailing n
// points is at or below level.
func ReachedBottom(level float64, n int) func(*line.Line) bool {
	return func(l *line.Line) bool {
		for _, v := range l.Tail(n) {
			if v <= level {
				return true
			}
		}
		return false
	}
}
