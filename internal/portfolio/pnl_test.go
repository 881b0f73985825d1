package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

func TestPnLTracker_RoundTrip(t *testing.T) {
	p := NewPnLTracker()

	p.RecordTrade(Trade{Key: "k", Side: model.SideBuy, Qty: 1, Price: 100})
	p.RecordTrade(Trade{Key: "k", Side: model.SideBuy, Qty: 1, Price: 110})
	assert.Equal(t, Position{Qty: 2, AvgPrice: 105}, p.Position("k"))

	tr := p.RecordTrade(Trade{Key: "k", Side: model.SideSell, Qty: 5, Price: 115})
	assert.InDelta(t, 20, tr.Realized, 1e-9, "sell is capped at the held quantity")
	assert.InDelta(t, 20.0/210*100, tr.ReturnPct, 1e-9)
	assert.Equal(t, Position{}, p.Position("k"))
	assert.InDelta(t, 20, p.RealizedPnL(), 1e-9)
	assert.Len(t, p.Trades(), 3)
}

func TestPnLTracker_SellWithoutPosition(t *testing.T) {
	p := NewPnLTracker()
	tr := p.RecordTrade(Trade{Key: "k", Side: model.SideSell, Qty: 1, Price: 50})
	assert.Zero(t, tr.Realized)
	assert.Zero(t, tr.ReturnPct)
	assert.Zero(t, p.Summary(nil).OpenPositions)
}

func TestPnLTracker_Summary(t *testing.T) {
	p := NewPnLTracker()
	buy := model.Signal{Strategy: "rsi_14", Symbol: "BTC", Side: model.SideBuy, Price: 100}
	sell := model.Signal{Strategy: "rsi_14", Symbol: "BTC", Side: model.SideSell, Price: 90}

	p.RecordSignal(buy, 2)
	p.RecordSignal(sell, 1)
	require.Equal(t, "rsi_14:BTC", Key(buy))

	s := p.Summary(map[string]float64{"rsi_14:BTC": 120})
	assert.InDelta(t, -10, s.RealizedPnL, 1e-9)
	assert.InDelta(t, 20, s.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 10, s.TotalPnL, 1e-9)
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.OpenPositions)
}
