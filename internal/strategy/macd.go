package strategy

import (
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

var macdDefaults = Params{
	FastPeriod:       12,
	SlowPeriod:       26,
	SignalPeriod:     9,
	CrossingInterval: defaultCrossingInterval,
	PriceField:       model.PriceClose,
}

// MACD trades crossings of the MACD line (fast EMA minus slow EMA) with its
// signal line (SMA of the MACD line). Lines: "main" and "signal".
type MACD struct {
	base
}

// NewMACD creates a MACD strategy.
func NewMACD(log *zap.Logger) *MACD {
	s := &MACD{}
	s.init(TypeMACD, log, "main", "signal")
	return s
}

func (s *MACD) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.withDefaults(macdDefaults)
	s.begin(p)

	if err := s.requirePositive(map[string]int{
		"fast period":   p.FastPeriod,
		"slow period":   p.SlowPeriod,
		"signal period": p.SignalPeriod,
	}); err != nil {
		return err
	}
	if p.FastPeriod >= p.SlowPeriod {
		return s.reject(ErrBadPeriodsForLines, "%s: fast period %d must be below slow period %d", s.typ, p.FastPeriod, p.SlowPeriod)
	}
	if err := s.requireCandles(candles, p.SlowPeriod); err != nil {
		return err
	}
	field, err := s.priceField(p.PriceField)
	if err != nil {
		return err
	}

	prices := model.Prices(candles, field)
	fast := indicator.Series(indicator.NewEMA(p.FastPeriod), prices)
	slow := indicator.Series(indicator.NewEMA(p.SlowPeriod), prices)

	// Drop the leading fast points that have no slow counterpart.
	trim := p.SlowPeriod - p.FastPeriod
	if trim > len(fast) {
		return s.reject(ErrNotCorrectLinesSize, "%s: cannot trim %d of %d fast points", s.typ, trim, len(fast))
	}
	fast = fast[trim:]
	if len(fast) != len(slow) {
		return s.reject(ErrNotCorrectLinesSize, "%s: fast line has %d points, slow line %d", s.typ, len(fast), len(slow))
	}

	main := s.line("main")
	for i := range fast {
		main.Add(fast[i] - slow[i])
	}
	if main.Size() < p.SignalPeriod {
		return s.reject(ErrSmallAnalyzedPeriod, "%s: %d main points, signal period %d", s.typ, main.Size(), p.SignalPeriod)
	}

	signal := s.line("signal")
	indicator.Build(indicator.NewSMA(p.SignalPeriod), main.Values(), signal)

	if err := s.detect(main, signal, p); err != nil {
		return s.fail(err)
	}
	s.finish(candles)
	return nil
}

func (s *MACD) detect(main, signal *line.Line, p Params) error {
	c, err := CrossingDetector{
		Interval:      p.CrossingInterval,
		LastBuyPoint:  p.LastBuyPoint,
		LastSellPoint: p.LastSellPoint,
	}.Detect(main, signal)
	if err != nil {
		return err
	}
	s.apply(c)
	return nil
}
