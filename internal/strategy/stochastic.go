package strategy

import (
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// Quick and slow stochastics always smooth with this period.
const classicSmoothing = 3

var stochasticDefaults = Params{
	Period:           14,
	SmoothFastPeriod: 3,
	SmoothSlowPeriod: 3,
	CrossingInterval: defaultCrossingInterval,
	TopLevel:         80,
	BottomLevel:      20,
	StochasticType:   StochasticFull,
}

// StochasticOscillator trades crossings of the stochastic main line with its
// signal line, honouring a sell only when the main line reached the top level
// and a buy only when it reached the bottom level within the crossing window.
//
//	quick: main = %K,                     signal = SMA(3) of main
//	slow:  main = SMA(3) of %K,           signal = SMA(3) of main
//	full:  main = SMA(smoothFast) of %K,  signal = SMA(smoothSlow) of main
//
// Lines: "k", "main" and "signal".
type StochasticOscillator struct {
	base
}

// NewStochasticOscillator creates a stochastic oscillator strategy.
func NewStochasticOscillator(log *zap.Logger) *StochasticOscillator {
	s := &StochasticOscillator{}
	s.init(TypeStochasticOscillator, log, "k", "main", "signal")
	return s
}

func (s *StochasticOscillator) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.withDefaults(stochasticDefaults)
	s.begin(p)

	kind, err := ParseStochasticType(string(p.StochasticType))
	if err != nil {
		return s.fail(err)
	}
	if err := s.requirePositive(map[string]int{
		"period":             p.Period,
		"smooth fast period": p.SmoothFastPeriod,
		"smooth slow period": p.SmoothSlowPeriod,
		"crossing interval":  p.CrossingInterval,
	}); err != nil {
		return err
	}
	if p.BottomLevel >= p.TopLevel {
		return s.reject(ErrStrategy, "%s: bottom level %.2f must be below top level %.2f", s.typ, p.BottomLevel, p.TopLevel)
	}
	if err := s.requireCandles(candles, p.Period+p.SmoothFastPeriod+p.SmoothSlowPeriod); err != nil {
		return err
	}

	k := s.line("k")
	indicator.BuildStochK(p.Period, candles, k)

	mainPeriod, signalPeriod := smoothing(kind, p)
	main, signal := s.line("main"), s.line("signal")
	indicator.Build(indicator.NewSMA(mainPeriod), k.Values(), main)
	indicator.Build(indicator.NewSMA(signalPeriod), main.Values(), signal)

	if err := s.detect(main, signal, p); err != nil {
		return s.fail(err)
	}
	s.finish(candles)
	return nil
}

// smoothing returns the SMA periods of the main and signal lines. A period
// of 1 leaves the input unchanged.
func smoothing(kind StochasticType, p Params) (mainPeriod, signalPeriod int) {
	switch kind {
	case StochasticQuick:
		return 1, classicSmoothing
	case StochasticSlow:
		return classicSmoothing, classicSmoothing
	default:
		return p.SmoothFastPeriod, p.SmoothSlowPeriod
	}
}

func (s *StochasticOscillator) detect(main, signal *line.Line, p Params) error {
	window := p.CrossingInterval + 1
	c, err := CrossingDetector{
		Interval:         p.CrossingInterval,
		LastBuyPoint:     p.LastBuyPoint,
		LastSellPoint:    p.LastSellPoint,
		CheckTopBound:    ReachedTop(p.TopLevel, window),
		CheckBottomBound: ReachedBottom(p.BottomLevel, window),
	}.Detect(main, signal)
	if err != nil {
		return err
	}
	s.apply(c)
	return nil
}
