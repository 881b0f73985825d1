package strategy

import (
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

var movingAverageDefaults = Params{
	Period:           20,
	CrossingInterval: defaultCrossingInterval,
	PriceField:       model.PriceClose,
}

// movingAverage is the price-versus-average strategy shared by SMA and EMA.
// The price line is the main line, the average the signal line: a buy fires
// when price crosses above the average, a sell when it crosses below.
type movingAverage struct {
	base
	name string
	calc func(period int) indicator.Indicator
}

func (m *movingAverage) init(typ Type, log *zap.Logger, name string, calc func(int) indicator.Indicator) {
	m.base.init(typ, log, name, "price")
	m.name = name
	m.calc = calc
}

func (m *movingAverage) CreateLines(candles []model.Candle, p Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = p.withDefaults(movingAverageDefaults)
	m.begin(p)

	if err := m.requirePositive(map[string]int{"period": p.Period}); err != nil {
		return err
	}
	if err := m.requireCandles(candles, p.Period); err != nil {
		return err
	}
	field, err := m.priceField(p.PriceField)
	if err != nil {
		return err
	}

	prices := model.Prices(candles, field)
	avg := m.line(m.name)
	indicator.Build(m.calc(p.Period), prices, avg)

	price := m.line("price")
	for _, v := range prices[p.Period-1:] {
		price.Add(v)
	}

	if avg.Size() > p.CrossingInterval {
		c, err := CrossingDetector{
			Interval:      p.CrossingInterval,
			LastBuyPoint:  p.LastBuyPoint,
			LastSellPoint: p.LastSellPoint,
		}.Detect(price, avg)
		if err != nil {
			return m.fail(err)
		}
		m.apply(c)
	} else if p.CrossingInterval < 1 {
		return m.reject(ErrStrategy, "%s: crossing interval %d must be positive", m.typ, p.CrossingInterval)
	}

	m.finish(candles)
	return nil
}

// SMA is the simple moving average strategy. Its "sma" line holds
// len(candles)-period+1 points.
type SMA struct {
	movingAverage
}

// NewSMA creates an SMA strategy.
func NewSMA(log *zap.Logger) *SMA {
	s := &SMA{}
	s.init(TypeSMA, log, "sma", func(period int) indicator.Indicator {
		return indicator.NewSMA(period)
	})
	return s
}

// EMA is the exponential moving average strategy. Its "ema" line holds
// len(candles)-period+1 points, the first being the SMA seed.
type EMA struct {
	movingAverage
}

// NewEMA creates an EMA strategy.
func NewEMA(log *zap.Logger) *EMA {
	s := &EMA{}
	s.init(TypeEMA, log, "ema", func(period int) indicator.Indicator {
		return indicator.NewEMA(period)
	})
	return s
}
