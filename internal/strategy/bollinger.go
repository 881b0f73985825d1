package strategy

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/indicator"
	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

const fullBand = 100.0

var bollingerDefaults = Params{
	Period:               20,
	StdDevMultiplier:     2,
	CrossingInterval:     defaultCrossingInterval,
	PriceField:           model.PriceClose,
	TopLinePercentage:    fullBand,
	BottomLinePercentage: fullBand,
}

// bands builds the middle, upper and lower Bollinger lines and evaluates the
// band penetration rules. top and bottom are the penetration percentages;
// 100 means the band edge itself.
type bands struct {
	base
}

func (b *bands) create(candles []model.Candle, p Params, top, bottom float64) error {
	if err := b.requirePositive(map[string]int{
		"period":            p.Period,
		"crossing interval": p.CrossingInterval,
	}); err != nil {
		return err
	}
	if top <= 0 || bottom <= 0 {
		return b.reject(ErrStrategy, "%s: band percentages must be positive, got top %.2f bottom %.2f", b.typ, top, bottom)
	}
	if p.StdDevMultiplier < 0 {
		return b.reject(ErrStrategy, "%s: std-dev multiplier must not be negative, got %.2f", b.typ, p.StdDevMultiplier)
	}
	if err := b.requireCandles(candles, p.Period); err != nil {
		return err
	}
	field, err := b.priceField(p.PriceField)
	if err != nil {
		return err
	}

	prices := model.Prices(candles, field)
	middle, upper, lower := b.line("middle"), b.line("upper"), b.line("lower")
	indicator.Build(indicator.NewSMA(p.Period), prices, middle)
	sd := indicator.Series(indicator.NewStdDev(p.Period), prices)
	if len(sd) != middle.Size() {
		return b.reject(ErrNotCorrectLinesSize, "%s: %d deviations for %d middle points", b.typ, len(sd), middle.Size())
	}
	for i, dev := range sd {
		m, _ := middle.Get(i)
		upper.Add(m + dev*p.StdDevMultiplier)
		lower.Add(m - dev*p.StdDevMultiplier)
	}

	price := prices[len(prices)-1]
	sellAt, buyAt, err := thresholds(middle, upper, lower, top, bottom)
	if err != nil {
		return b.fail(err)
	}

	if price > sellAt && !isDuplicate(upper, p.LastSellPoint, p.CrossingInterval) {
		b.needSell = true
		b.lastSell, _ = upper.Last()
	}
	if price < buyAt && !isDuplicate(lower, p.LastBuyPoint, p.CrossingInterval) {
		b.needBuy = true
		b.lastBuy, _ = lower.Last()
	}

	b.finish(candles)
	return nil
}

// thresholds returns the sell and buy price levels for the newest bar.
func thresholds(middle, upper, lower *line.Line, top, bottom float64) (sellAt, buyAt float64, err error) {
	m, err := middle.Last()
	if err != nil {
		return 0, 0, errors.Wrap(err, "middle line")
	}
	u, err := upper.Last()
	if err != nil {
		return 0, 0, errors.Wrap(err, "upper line")
	}
	l, err := lower.Last()
	if err != nil {
		return 0, 0, errors.Wrap(err, "lower line")
	}

	sellAt, buyAt = u, l
	if top != fullBand {
		sellAt = m + (u-m)*top/100
	}
	if bottom != fullBand {
		buyAt = m - (m-l)*bottom/100
	}
	return sellAt, buyAt, nil
}

// BollingerBands sells when price closes above the upper band and buys when
// it closes below the lower band.
type BollingerBands struct {
	bands
}

// NewBollingerBands creates a basic Bollinger Bands strategy.
func NewBollingerBands(log *zap.Logger) *BollingerBands {
	s := &BollingerBands{}
	s.init(TypeBollingerBands, log, "middle", "upper", "lower")
	return s
}

func (s *BollingerBands) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = p.withDefaults(bollingerDefaults)
	s.begin(p)
	return s.create(candles, p, fullBand, fullBand)
}

// BollingerBandsAdvanced scales how far price must penetrate the bands.
// A top percentage p moves the sell level to middle+(upper-middle)*p/100, so
// 50 sells halfway to the upper band and 150 sells beyond it.
type BollingerBandsAdvanced struct {
	bands
	top    float64
	bottom float64
}

// NewBollingerBandsAdvanced creates an advanced Bollinger Bands strategy with
// both percentages at 100.
func NewBollingerBandsAdvanced(log *zap.Logger) *BollingerBandsAdvanced {
	s := &BollingerBandsAdvanced{top: fullBand, bottom: fullBand}
	s.init(TypeBollingerBandsAdvanced, log, "middle", "upper", "lower")
	return s
}

// SetPercentageForTopLine sets the sell penetration used when Params leaves
// TopLinePercentage at zero.
func (s *BollingerBandsAdvanced) SetPercentageForTopLine(p float64) error {
	if p <= 0 {
		return errors.Wrapf(ErrStrategy, "top line percentage must be positive, got %.2f", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.top = p
	return nil
}

// SetPercentageForBottomLine sets the buy penetration used when Params leaves
// BottomLinePercentage at zero.
func (s *BollingerBandsAdvanced) SetPercentageForBottomLine(p float64) error {
	if p <= 0 {
		return errors.Wrapf(ErrStrategy, "bottom line percentage must be positive, got %.2f", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bottom = p
	return nil
}

func (s *BollingerBandsAdvanced) CreateLines(candles []model.Candle, p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := bollingerDefaults
	d.TopLinePercentage = s.top
	d.BottomLinePercentage = s.bottom
	p = p.withDefaults(d)
	s.begin(p)
	return s.create(candles, p, p.TopLinePercentage, p.BottomLinePercentage)
}
