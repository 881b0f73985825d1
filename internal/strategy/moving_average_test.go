package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

func TestSMA_FirstPoint(t *testing.T) {
	s := NewSMA(nil)
	candles := candlesFromCloses(22.27, 22.19, 22.08, 22.17, 22.18, 22.13, 22.23, 22.43, 22.24, 22.29)

	require.NoError(t, s.CreateLines(candles, Params{Period: 10}))
	sma := s.Lines()["sma"]
	require.Equal(t, 1, sma.Size())
	first, err := sma.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, 22.220999999999997, first, 1e-9)
	assert.False(t, s.IsNeedToBuy())
	assert.False(t, s.IsNeedToSell())
}

func TestMovingAverages_SizeInvariant(t *testing.T) {
	candles := candlesFromCloses(sineCloses...)
	for _, s := range []TradeStrategy{NewSMA(nil), NewEMA(nil)} {
		name := string(s.Type())
		for period := 1; period <= len(candles); period++ {
			require.NoError(t, s.CreateLines(candles, Params{Period: period}), "%s period %d", name, period)
			assert.Equal(t, len(candles)-period+1, s.Lines()[name].Size(), "%s period %d", name, period)
			assert.Equal(t, len(candles)-period+1, s.Lines()["price"].Size(), "%s period %d", name, period)
		}
	}
}

func TestMovingAverages_ValidationClearsLines(t *testing.T) {
	for _, s := range []TradeStrategy{NewSMA(nil), NewEMA(nil)} {
		candles := candlesFromCloses(sineCloses...)
		require.NoError(t, s.CreateLines(candles, Params{Period: 5}))
		require.NotZero(t, s.Lines()[string(s.Type())].Size())

		err := s.CreateLines(candles[:4], Params{Period: 5})
		assert.ErrorIs(t, err, ErrStrategy)
		for name, l := range s.Lines() {
			assert.Zero(t, l.Size(), "%s line %s", s.Type(), name)
		}
		_, ok := s.LastCandle()
		assert.False(t, ok)

		err = s.CreateLines(nil, Params{Period: 5})
		assert.ErrorIs(t, err, ErrStrategy)
	}
}

func TestEMA_SeedIsFirstPoint(t *testing.T) {
	s := NewEMA(nil)
	require.NoError(t, s.CreateLines(candlesFromCloses(100, 102, 104, 103, 105), Params{Period: 3}))
	assert.Equal(t, []float64{102, 102.5, 103.75}, s.Lines()["ema"].Values())
}

func TestSMA_PriceCrossings(t *testing.T) {
	events, err := replay(NewSMA(nil), candlesFromCloses(sineCloses...), 5, Params{Period: 5})
	require.NoError(t, err)
	assert.Equal(t, []event{
		{8, model.SideSell},
		{15, model.SideBuy},
		{23, model.SideSell},
		{30, model.SideBuy},
	}, events)
}

func TestEMA_PriceCrossings(t *testing.T) {
	events, err := replay(NewEMA(nil), candlesFromCloses(sineCloses...), 5, Params{Period: 5})
	require.NoError(t, err)
	assert.Equal(t, []event{
		{8, model.SideSell},
		{15, model.SideBuy},
		{23, model.SideSell},
	}, events)
}

func TestSMA_PriceField(t *testing.T) {
	s := NewSMA(nil)
	candles := candlesFromCloses(10, 20)

	require.NoError(t, s.CreateLines(candles, Params{Period: 2, PriceField: model.PriceHigh}))
	v, _ := s.Lines()["sma"].Last()
	assert.Equal(t, 16.0, v)

	err := s.CreateLines(candles, Params{Period: 2, PriceField: "median"})
	assert.ErrorIs(t, err, ErrUndefinedType)
}

func TestSMA_LastCandle(t *testing.T) {
	s := NewSMA(nil)
	candles := candlesFromCloses(1, 2, 3)
	require.NoError(t, s.CreateLines(candles, Params{Period: 2}))

	last, ok := s.LastCandle()
	require.True(t, ok)
	assert.Equal(t, candles[2], last)
}

func TestLines_ReturnsCopies(t *testing.T) {
	s := NewSMA(nil)
	require.NoError(t, s.CreateLines(candlesFromCloses(1, 2, 3), Params{Period: 2}))

	lines := s.Lines()
	lines["sma"].Add(99)
	assert.Equal(t, 2, s.Lines()["sma"].Size())
}
