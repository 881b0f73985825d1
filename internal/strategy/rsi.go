package strategy

import (
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

var rsiDefaults = Params{
	Period:           14,
	CrossingInterval: defaultCrossingInterval,
	TopLevel:         70,
	BottomLevel:      30,
	PriceField:       model.PriceClose,
}

// RSI buys when the relative strength index drops below the bottom level and
// sells when it rises above the top level.
//
// Each point sums the positive and negative close-to-close deltas of the
// period moves ending at that bar, so the "rsi" line holds
// len(candles)-period points. A window without losses reads 100.
type RSI struct {
	base
}

// NewRSI creates an RSI strategy.
func NewRSI(log *zap.Logger) *RSI {
	s := &RSI{}
	s.init(TypeRSI, log, "rsi")
	return s
}

func (s *RSI) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.withDefaults(rsiDefaults)
	s.begin(p)

	if err := s.requirePositive(map[string]int{
		"period":            p.Period,
		"crossing interval": p.CrossingInterval,
	}); err != nil {
		return err
	}
	if p.BottomLevel >= p.TopLevel {
		return s.reject(ErrStrategy, "%s: bottom level %.2f must be below top level %.2f", s.typ, p.BottomLevel, p.TopLevel)
	}
	if err := s.requireCandles(candles, p.Period); err != nil {
		return err
	}
	field, err := s.priceField(p.PriceField)
	if err != nil {
		return err
	}

	rsi := s.line("rsi")
	indicator.Build(indicator.NewRSI(p.Period), model.Prices(candles, field), rsi)

	// len(candles) == period leaves no complete window.
	if last, err := rsi.Last(); err == nil {
		if last < p.BottomLevel && !isDuplicate(rsi, p.LastBuyPoint, p.CrossingInterval) {
			s.needBuy = true
			s.lastBuy = last
		}
		if last > p.TopLevel && !isDuplicate(rsi, p.LastSellPoint, p.CrossingInterval) {
			s.needSell = true
			s.lastSell = last
		}
	}

	s.finish(candles)
	return nil
}
