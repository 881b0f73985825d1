package indicator

import "gonum.org/v1/gonum/stat"

// SMA is the arithmetic mean of the last period values.
type SMA struct {
	period  int
	window  []float64
	current float64
}

// NewSMA creates an SMA over period values. Periods below 1 are treated as 1.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{period: period, window: make([]float64, 0, period)}
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(value float64) {
	if len(s.window) == s.period {
		copy(s.window, s.window[1:])
		s.window[s.period-1] = value
	} else {
		s.window = append(s.window, value)
	}
	if s.Ready() {
		s.current = stat.Mean(s.window, nil)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return len(s.window) == s.period }

func (s *SMA) Reset() {
	s.window = s.window[:0]
	s.current = 0
}
