package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declining(n int, from float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from - float64(i)
	}
	return out
}

func TestRSI_DecliningSeriesBuys(t *testing.T) {
	s := NewRSI(nil)
	candles := candlesFromCloses(declining(15, 100)...)

	require.NoError(t, s.CreateLines(candles, Params{Period: 14, TopLevel: 80, BottomLevel: 20}))
	rsi := s.Lines()["rsi"]
	require.Equal(t, 1, rsi.Size())
	last, _ := rsi.Last()
	assert.InDelta(t, 0.0, last, 1e-12)
	assert.True(t, s.IsNeedToBuy())
	assert.False(t, s.IsNeedToSell())
	assert.Equal(t, last, s.LastBuyCrossingPoint())
}

func TestRSI_RisingSeriesSellsAt100(t *testing.T) {
	s := NewRSI(nil)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50 + float64(i)
	}
	require.NoError(t, s.CreateLines(candlesFromCloses(closes...), Params{}))

	last, _ := s.Lines()["rsi"].Last()
	assert.Equal(t, 100.0, last)
	assert.True(t, s.IsNeedToSell())
	assert.Equal(t, 100.0, s.LastSellCrossingPoint())
}

func TestRSI_LineSize(t *testing.T) {
	s := NewRSI(nil)
	candles := candlesFromCloses(sineCloses...)
	require.NoError(t, s.CreateLines(candles, Params{Period: 14}))
	assert.Equal(t, len(candles)-14, s.Lines()["rsi"].Size())

	// exactly period candles: no complete window, no signal
	require.NoError(t, s.CreateLines(candles[:14], Params{Period: 14}))
	assert.Zero(t, s.Lines()["rsi"].Size())
	assert.False(t, s.IsNeedToBuy())
	assert.False(t, s.IsNeedToSell())
}

func TestRSI_DuplicateSuppression(t *testing.T) {
	s := NewRSI(nil)
	candles := candlesFromCloses(declining(16, 100)...)
	p := Params{Period: 14, TopLevel: 80, BottomLevel: 20}

	require.NoError(t, s.CreateLines(candles[:15], p))
	require.True(t, s.IsNeedToBuy())

	// RSI stays at 0 on the next bar: the recorded 0 is in the trailing window
	p.LastBuyPoint = Point(s.LastBuyCrossingPoint())
	require.NoError(t, s.CreateLines(candles, p))
	assert.False(t, s.IsNeedToBuy())
	assert.Equal(t, 0.0, s.LastBuyCrossingPoint())
}

func TestRSI_Validation(t *testing.T) {
	s := NewRSI(nil)

	err := s.CreateLines(candlesFromCloses(declining(13, 100)...), Params{Period: 14})
	assert.ErrorIs(t, err, ErrStrategy)
	assert.Zero(t, s.Lines()["rsi"].Size())

	err = s.CreateLines(nil, Params{})
	assert.ErrorIs(t, err, ErrStrategy)

	err = s.CreateLines(candlesFromCloses(declining(20, 100)...), Params{TopLevel: 20, BottomLevel: 80})
	assert.ErrorIs(t, err, ErrStrategy)

	err = s.CreateLines(candlesFromCloses(declining(20, 100)...), Params{CrossingInterval: -1})
	assert.ErrorIs(t, err, ErrStrategy)
}
