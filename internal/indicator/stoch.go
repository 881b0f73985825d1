package indicator

import (
	"github.com/samber/lo"

	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// StochK calculates the classic stochastic %K line:
//
//	%K = (close - lowest low) / (highest high - lowest low) * 100
//
// over a rolling window of period candles. A flat window (highest == lowest)
// yields 50.
type StochK struct {
	period  int
	highs   []float64
	lows    []float64
	idx     int
	count   int
	current float64
}

// NewStochK creates a %K calculator over period candles.
func NewStochK(period int) *StochK {
	if period < 1 {
		period = 1
	}
	return &StochK{
		period: period,
		highs:  make([]float64, period),
		lows:   make([]float64, period),
	}
}

func (s *StochK) Name() string { return "STOCH_K" }

// UpdateCandle feeds the next candle.
func (s *StochK) UpdateCandle(c model.Candle) {
	s.highs[s.idx] = c.High
	s.lows[s.idx] = c.Low
	s.idx = (s.idx + 1) % s.period
	s.count++

	if s.count < s.period {
		return
	}

	lowest := lo.Min(s.lows)
	highest := lo.Max(s.highs)
	if highest == lowest {
		s.current = 50.0
		return
	}
	s.current = (c.Close - lowest) / (highest - lowest) * 100.0
}

func (s *StochK) Value() float64 { return s.current }
func (s *StochK) Ready() bool    { return s.count >= s.period }

// Reset clears the %K state for reuse.
func (s *StochK) Reset() {
	s.idx = 0
	s.count = 0
	s.current = 0
	for i := range s.highs {
		s.highs[i] = 0
		s.lows[i] = 0
	}
}

// BuildStochK replays candles through a fresh %K calculator into out.
// out is cleared first.
func BuildStochK(period int, candles []model.Candle, out *line.Line) {
	out.Clear()
	k := NewStochK(period)
	for _, c := range candles {
		k.UpdateCandle(c)
		if k.Ready() {
			out.Add(k.Value())
		}
	}
}
