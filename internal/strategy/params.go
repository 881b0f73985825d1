package strategy

import (
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// Params carries the per-call configuration of a strategy. Zero values take
// the defaults of the strategy they are passed to.
type Params struct {
	Period           int     `mapstructure:"period" json:"period,omitempty"`
	FastPeriod       int     `mapstructure:"fast_period" json:"fast_period,omitempty"`
	SlowPeriod       int     `mapstructure:"slow_period" json:"slow_period,omitempty"`
	SignalPeriod     int     `mapstructure:"signal_period" json:"signal_period,omitempty"`
	SmoothFastPeriod int     `mapstructure:"smooth_fast_period" json:"smooth_fast_period,omitempty"`
	SmoothSlowPeriod int     `mapstructure:"smooth_slow_period" json:"smooth_slow_period,omitempty"`
	StdDevMultiplier float64 `mapstructure:"std_dev_multiplier" json:"std_dev_multiplier,omitempty"`
	CrossingInterval int     `mapstructure:"crossing_interval" json:"crossing_interval,omitempty"`
	TopLevel         float64 `mapstructure:"top_level" json:"top_level,omitempty"`
	BottomLevel      float64 `mapstructure:"bottom_level" json:"bottom_level,omitempty"`

	PriceField     model.PriceField  `mapstructure:"price_field" json:"price_field,omitempty"`
	StochasticType StochasticType    `mapstructure:"stochastic_type" json:"stochastic_type,omitempty"`
	MovingAverage  MovingAverageKind `mapstructure:"moving_average" json:"moving_average,omitempty"`

	// Advanced Bollinger band penetration, in percent of the band half-width.
	TopLinePercentage    float64 `mapstructure:"top_line_percentage" json:"top_line_percentage,omitempty"`
	BottomLinePercentage float64 `mapstructure:"bottom_line_percentage" json:"bottom_line_percentage,omitempty"`

	// RSI filter period for MovingAverageCrossing (0 disables the filter).
	RSIFilterPeriod int `mapstructure:"rsi_filter_period" json:"rsi_filter_period,omitempty"`

	// Crossing points recorded by a previous call. nil means no crossing has
	// been recorded yet.
	LastBuyPoint  *float64 `mapstructure:"-" json:"-"`
	LastSellPoint *float64 `mapstructure:"-" json:"-"`
}

// Point returns a pointer to v, for Params.LastBuyPoint/LastSellPoint.
func Point(v float64) *float64 { return &v }

const defaultCrossingInterval = 3

// withDefaults fills every zero field of p from d.
func (p Params) withDefaults(d Params) Params {
	p.Period = orInt(p.Period, d.Period)
	p.FastPeriod = orInt(p.FastPeriod, d.FastPeriod)
	p.SlowPeriod = orInt(p.SlowPeriod, d.SlowPeriod)
	p.SignalPeriod = orInt(p.SignalPeriod, d.SignalPeriod)
	p.SmoothFastPeriod = orInt(p.SmoothFastPeriod, d.SmoothFastPeriod)
	p.SmoothSlowPeriod = orInt(p.SmoothSlowPeriod, d.SmoothSlowPeriod)
	p.CrossingInterval = orInt(p.CrossingInterval, d.CrossingInterval)
	p.RSIFilterPeriod = orInt(p.RSIFilterPeriod, d.RSIFilterPeriod)
	p.StdDevMultiplier = orFloat(p.StdDevMultiplier, d.StdDevMultiplier)
	p.TopLevel = orFloat(p.TopLevel, d.TopLevel)
	p.BottomLevel = orFloat(p.BottomLevel, d.BottomLevel)
	p.TopLinePercentage = orFloat(p.TopLinePercentage, d.TopLinePercentage)
	p.BottomLinePercentage = orFloat(p.BottomLinePercentage, d.BottomLinePercentage)
	if p.PriceField == "" {
		p.PriceField = d.PriceField
	}
	if p.StochasticType == "" {
		p.StochasticType = d.StochasticType
	}
	if p.MovingAverage == "" {
		p.MovingAverage = d.MovingAverage
	}
	return p
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
