// Package strategy provides the technical-analysis strategies and the
// registry that hands them out.
//
// A strategy receives a finite, time-ordered candle array, rebuilds its lines
// from scratch and raises buy/sell flags from crossings between its lines or
// between a line and a threshold. Crossing points are reported back so the
// caller can pass them into the next call and avoid re-signalling the same
// crossing.
package strategy

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// TradeStrategy is the capability set every strategy exposes to its caller.
type TradeStrategy interface {
	// Type returns the registry identifier of the strategy.
	Type() Type

	// CreateLines clears and rebuilds the lines from candles, then evaluates
	// the crossing rules. On error every line is left empty.
	CreateLines(candles []model.Candle, p Params) error

	IsNeedToBuy() bool
	IsNeedToSell() bool

	// LastBuyCrossingPoint returns the buy point recorded by the last call,
	// or the one passed in through Params when no new crossing fired.
	LastBuyCrossingPoint() float64
	LastSellCrossingPoint() float64

	// Lines returns copies of the computed lines keyed by name.
	Lines() map[string]*line.Line

	// LastCandle returns the newest candle of the last successful call.
	LastCandle() (model.Candle, bool)
}

// base holds the state shared by every strategy: lines, crossing flags,
// crossing points and the latest candle. All access goes through mu since
// registry instances are shared.
type base struct {
	mu    sync.Mutex
	typ   Type
	log   *zap.Logger
	lines map[string]*line.Line

	needBuy  bool
	needSell bool
	lastBuy  float64
	lastSell float64

	last    model.Candle
	hasLast bool
}

func (b *base) init(typ Type, log *zap.Logger, names ...string) {
	if log == nil {
		log = zap.NewNop()
	}
	b.typ = typ
	b.log = log.With(zap.String("strategy", string(typ)))
	b.lines = make(map[string]*line.Line, len(names))
	for _, name := range names {
		b.lines[name] = line.New(0)
	}
}

func (b *base) line(name string) *line.Line { return b.lines[name] }

// begin resets per-call state. Callers hold mu.
func (b *base) begin(p Params) {
	b.needBuy = false
	b.needSell = false
	b.lastBuy = deref(p.LastBuyPoint)
	b.lastSell = deref(p.LastSellPoint)
	b.hasLast = false
	b.clearLines()
}

func (b *base) clearLines() {
	for _, l := range b.lines {
		l.Clear()
	}
}

// reject clears every line, logs the failure and returns kind wrapped with
// the formatted context.
func (b *base) reject(kind error, format string, args ...interface{}) error {
	return b.fail(errors.Wrapf(kind, format, args...))
}

func (b *base) fail(err error) error {
	b.clearLines()
	b.log.Warn("create lines failed", zap.Error(err))
	return err
}

// requireCandles validates the candle count against need.
func (b *base) requireCandles(candles []model.Candle, need int) error {
	if len(candles) == 0 {
		return b.reject(ErrStrategy, "%s: empty candle set", b.typ)
	}
	if len(candles) < need {
		return b.reject(ErrStrategy, "%s: %d candles, need at least %d", b.typ, len(candles), need)
	}
	return nil
}

// requirePositive validates that every named value is at least 1.
func (b *base) requirePositive(values map[string]int) error {
	for name, v := range values {
		if v < 1 {
			return b.reject(ErrStrategy, "%s: %s must be positive, got %d", b.typ, name, v)
		}
	}
	return nil
}

func (b *base) priceField(f model.PriceField) (model.PriceField, error) {
	pf, err := model.ParsePriceField(string(f))
	if err != nil {
		return "", b.reject(ErrUndefinedType, "%s: price field %q", b.typ, f)
	}
	return pf, nil
}

// apply records the outcome of a crossing evaluation.
func (b *base) apply(c Crossing) {
	if c.Buy {
		b.needBuy = true
		b.lastBuy = c.Point
	}
	if c.Sell {
		b.needSell = true
		b.lastSell = c.Point
	}
}

func (b *base) finish(candles []model.Candle) {
	b.last = candles[len(candles)-1]
	b.hasLast = true
	if b.needBuy || b.needSell {
		b.log.Debug("crossing detected",
			zap.String("symbol", b.last.Symbol),
			zap.Bool("buy", b.needBuy),
			zap.Bool("sell", b.needSell),
			zap.Float64("buy_point", b.lastBuy),
			zap.Float64("sell_point", b.lastSell),
		)
	}
}

func (b *base) Type() Type { return b.typ }

func (b *base) IsNeedToBuy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needBuy
}

func (b *base) IsNeedToSell() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needSell
}

func (b *base) LastBuyCrossingPoint() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBuy
}

func (b *base) LastSellCrossingPoint() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSell
}

func (b *base) Lines() map[string]*line.Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]*line.Line, len(b.lines))
	for name, l := range b.lines {
		out[name] = l.Clone()
	}
	return out
}

func (b *base) LastCandle() (model.Candle, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
