// Package portfolio tracks positions opened and closed by strategy signals
// and the profit they realise.
package portfolio

import (
	"sync"
	"time"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// Trade is one fill recorded for P&L calculation.
type Trade struct {
	Key   string     `json:"key"` // position key, e.g. "macd_12_26:BTCUSDT"
	Side  model.Side `json:"side"`
	Qty   float64    `json:"qty"`
	Price float64    `json:"price"`
	TS    time.Time  `json:"ts"`

	// Realized is the profit booked by a sell, zero for buys.
	Realized float64 `json:"realized"`
	// ReturnPct is Realized relative to the cost of the quantity sold.
	ReturnPct float64 `json:"return_pct"`
}

// Position is the open long quantity of one key.
type Position struct {
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// PnLTracker tracks realized and unrealized P&L of long-only positions.
type PnLTracker struct {
	mu        sync.RWMutex
	trades    []Trade
	realized  float64
	positions map[string]Position
}

// NewPnLTracker creates an empty tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		trades:    make([]Trade, 0, 256),
		positions: make(map[string]Position),
	}
}

// Key returns the position key of a signal: one position per plan and symbol.
func Key(sig model.Signal) string {
	return sig.Strategy + ":" + sig.Symbol
}

// RecordTrade applies a fill and returns it with the realized profit set.
// Buys average into the position; sells reduce it and never go short.
func (p *PnLTracker) RecordTrade(t Trade) Trade {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.positions[t.Key]
	switch t.Side {
	case model.SideBuy:
		cost := pos.AvgPrice*pos.Qty + t.Price*t.Qty
		pos.Qty += t.Qty
		if pos.Qty > 0 {
			pos.AvgPrice = cost / pos.Qty
		}
	case model.SideSell:
		qty := t.Qty
		if qty > pos.Qty {
			qty = pos.Qty
		}
		t.Realized = (t.Price - pos.AvgPrice) * qty
		if qty > 0 && pos.AvgPrice > 0 {
			t.ReturnPct = t.Realized / (pos.AvgPrice * qty) * 100
		}
		pos.Qty -= qty
		if pos.Qty <= 0 {
			pos = Position{}
		}
		p.realized += t.Realized
	}

	if pos.Qty == 0 {
		delete(p.positions, t.Key)
	} else {
		p.positions[t.Key] = pos
	}
	p.trades = append(p.trades, t)
	return t
}

// RecordSignal books qty units at the signal price.
func (p *PnLTracker) RecordSignal(sig model.Signal, qty float64) Trade {
	return p.RecordTrade(Trade{Key: Key(sig), Side: sig.Side, Qty: qty, Price: sig.Price, TS: sig.TS})
}

// Position returns the open position of key.
func (p *PnLTracker) Position(key string) Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.positions[key]
}

// RealizedPnL returns the total realized P&L.
func (p *PnLTracker) RealizedPnL() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realized
}

// Trades returns a snapshot of all trades.
func (p *PnLTracker) Trades() []Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Trade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// PnLSummary aggregates the tracker state.
type PnLSummary struct {
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
	TotalTrades   int     `json:"total_trades"`
	OpenPositions int     `json:"open_positions"`
}

// Summary values open positions at lastPrices (keyed like positions).
func (p *PnLTracker) Summary(lastPrices map[string]float64) PnLSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var unrealized float64
	for key, pos := range p.positions {
		if price, ok := lastPrices[key]; ok {
			unrealized += (price - pos.AvgPrice) * pos.Qty
		}
	}

	return PnLSummary{
		RealizedPnL:   p.realized,
		UnrealizedPnL: unrealized,
		TotalPnL:      p.realized + unrealized,
		TotalTrades:   len(p.trades),
		OpenPositions: len(p.positions),
	}
}
