package indicator

import "gonum.org/v1/gonum/stat"

// EMA is the exponential moving average with smoothing k = 2/(period+1),
// seeded with the SMA of the first period values.
type EMA struct {
	period  int
	k       float64
	seed    []float64
	current float64
	ready   bool
}

// NewEMA creates an EMA over period values. Periods below 1 are treated as 1.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period: period,
		k:      2.0 / float64(period+1),
		seed:   make([]float64, 0, period),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(value float64) {
	if e.ready {
		e.current += e.k * (value - e.current)
		return
	}
	e.seed = append(e.seed, value)
	if len(e.seed) == e.period {
		e.current = stat.Mean(e.seed, nil)
		e.ready = true
	}
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.ready }

func (e *EMA) Reset() {
	e.seed = e.seed[:0]
	e.current = 0
	e.ready = false
}
