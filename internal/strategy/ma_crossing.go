package strategy

import (
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

var maCrossingDefaults = Params{
	FastPeriod:       9,
	SlowPeriod:       21,
	CrossingInterval: defaultCrossingInterval,
	PriceField:       model.PriceClose,
	MovingAverage:    MovingAverageSMA,
	TopLevel:         70,
	BottomLevel:      30,
}

// MovingAverageCrossing implements a fast/slow moving average crossover.
//
// Buy signal: fast MA crosses above slow MA (golden cross)
// Sell signal: fast MA crosses below slow MA (death cross)
//
// Optional RSI filter (Params.RSIFilterPeriod > 0) prevents buying when
// overbought (RSI > TopLevel) or selling when oversold (RSI < BottomLevel).
// Lines: "fast" and "slow", plus "rsi" when the filter is enabled.
type MovingAverageCrossing struct {
	base
}

// NewMovingAverageCrossing creates a moving average crossing strategy.
func NewMovingAverageCrossing(log *zap.Logger) *MovingAverageCrossing {
	s := &MovingAverageCrossing{}
	s.init(TypeMovingAverageCrossing, log, "fast", "slow", "rsi")
	return s
}

func (s *MovingAverageCrossing) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.withDefaults(maCrossingDefaults)
	s.begin(p)

	kind, err := ParseMovingAverageKind(string(p.MovingAverage))
	if err != nil {
		return s.fail(err)
	}
	if err := s.requirePositive(map[string]int{
		"fast period": p.FastPeriod,
		"slow period": p.SlowPeriod,
	}); err != nil {
		return err
	}
	if p.FastPeriod >= p.SlowPeriod {
		return s.reject(ErrBadPeriodsForLines, "%s: fast period %d must be below slow period %d", s.typ, p.FastPeriod, p.SlowPeriod)
	}
	if p.RSIFilterPeriod < 0 {
		return s.reject(ErrStrategy, "%s: rsi filter period must not be negative, got %d", s.typ, p.RSIFilterPeriod)
	}
	need := p.SlowPeriod
	if p.RSIFilterPeriod+1 > need {
		need = p.RSIFilterPeriod + 1
	}
	if err := s.requireCandles(candles, need); err != nil {
		return err
	}
	field, err := s.priceField(p.PriceField)
	if err != nil {
		return err
	}

	prices := model.Prices(candles, field)
	fast, slow := s.line("fast"), s.line("slow")
	fastValues := indicator.Series(newAverage(kind, p.FastPeriod), prices)
	// Align the fast line with the slow one.
	for _, v := range fastValues[p.SlowPeriod-p.FastPeriod:] {
		fast.Add(v)
	}
	indicator.Build(newAverage(kind, p.SlowPeriod), prices, slow)
	if fast.Size() != slow.Size() {
		return s.reject(ErrNotCorrectLinesSize, "%s: fast line has %d points, slow line %d", s.typ, fast.Size(), slow.Size())
	}

	c, err := CrossingDetector{
		Interval:      p.CrossingInterval,
		LastBuyPoint:  p.LastBuyPoint,
		LastSellPoint: p.LastSellPoint,
	}.Detect(fast, slow)
	if err != nil {
		return s.fail(err)
	}

	if p.RSIFilterPeriod > 0 && (c.Buy || c.Sell) {
		rsi := s.line("rsi")
		indicator.Build(indicator.NewRSI(p.RSIFilterPeriod), prices, rsi)
		last, _ := rsi.Last()
		if c.Buy && last > p.TopLevel {
			s.log.Debug("golden cross filtered by RSI", zap.Float64("rsi", last), zap.Float64("top", p.TopLevel))
			c.Buy = false
		}
		if c.Sell && last < p.BottomLevel {
			s.log.Debug("death cross filtered by RSI", zap.Float64("rsi", last), zap.Float64("bottom", p.BottomLevel))
			c.Sell = false
		}
	}

	s.apply(c)
	s.finish(candles)
	return nil
}

func newAverage(kind MovingAverageKind, period int) indicator.Indicator {
	if kind == MovingAverageEMA {
		return indicator.NewEMA(period)
	}
	return indicator.NewSMA(period)
}
