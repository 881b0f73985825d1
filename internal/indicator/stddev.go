package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// StdDev calculates the population standard deviation (divides by period)
// over a rolling window, the width measure of Bollinger Bands.
type StdDev struct {
	period  int
	buf     []float64
	idx     int
	count   int
	current float64
}

// NewStdDev creates a rolling population standard deviation.
func NewStdDev(period int) *StdDev {
	if period < 1 {
		period = 1
	}
	return &StdDev{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *StdDev) Name() string { return "STDDEV" }

func (s *StdDev) Update(value float64) {
	s.buf[s.idx] = value
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count >= s.period {
		// second central moment without degrees-of-freedom correction
		s.current = math.Sqrt(stat.Moment(2, s.buf, nil))
	}
}

func (s *StdDev) Value() float64 { return s.current }
func (s *StdDev) Ready() bool    { return s.count >= s.period }

// Reset clears the StdDev state for reuse.
func (s *StdDev) Reset() {
	s.idx = 0
	s.count = 0
	s.current = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}
