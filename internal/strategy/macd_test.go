package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

func TestMACD_SingleSellAtCrossover(t *testing.T) {
	s := NewMACD(nil)
	candles := candlesFromCloses(macdCloses()...)
	require.Len(t, candles, 40)

	events, err := replay(s, candles, 26, Params{FastPeriod: 12, SlowPeriod: 26})
	require.NoError(t, err)
	assert.Equal(t, []event{{38, model.SideSell}}, events)
}

func TestMACD_CrossoverValues(t *testing.T) {
	s := NewMACD(nil)
	candles := candlesFromCloses(macdCloses()...)

	require.NoError(t, s.CreateLines(candles[:38], Params{}))
	require.True(t, s.IsNeedToSell())

	lines := s.Lines()
	assert.Equal(t, 38-26+1, lines["main"].Size())
	assert.Equal(t, 38-26+1-9+1, lines["signal"].Size())

	main, _ := lines["main"].Last()
	signal, _ := lines["signal"].Last()
	assert.InDelta(t, 23.437, main, 1e-3)
	assert.InDelta(t, 24.813, signal, 1e-3)
	assert.Equal(t, main, s.LastSellCrossingPoint())
}

func TestMACD_PeriodOrdering(t *testing.T) {
	s := NewMACD(nil)
	candles := candlesFromCloses(macdCloses()...)
	for fast := 1; fast <= 30; fast++ {
		for slow := 1; slow <= fast; slow++ {
			err := s.CreateLines(candles, Params{FastPeriod: fast, SlowPeriod: slow})
			require.ErrorIs(t, err, ErrBadPeriodsForLines, "fast %d slow %d", fast, slow)
			require.ErrorIs(t, err, ErrStrategy)
		}
	}
}

func TestMACD_Validation(t *testing.T) {
	s := NewMACD(nil)
	candles := candlesFromCloses(macdCloses()...)

	err := s.CreateLines(candles[:25], Params{})
	assert.ErrorIs(t, err, ErrStrategy)
	assert.NotErrorIs(t, err, ErrBadPeriodsForLines)

	// 30 candles give 5 main points, fewer than the signal period
	err = s.CreateLines(candles[:30], Params{})
	assert.ErrorIs(t, err, ErrSmallAnalyzedPeriod)

	// 36 candles give a 3-point signal line, too short for interval 3
	err = s.CreateLines(candles[:36], Params{})
	assert.ErrorIs(t, err, ErrSmallAnalyzedPeriod)
	for name, l := range s.Lines() {
		assert.Zero(t, l.Size(), name)
	}
}

func TestMACD_Deterministic(t *testing.T) {
	candles := candlesFromCloses(macdCloses()...)
	a, b := NewMACD(nil), NewMACD(nil)
	require.NoError(t, a.CreateLines(candles, Params{}))
	require.NoError(t, b.CreateLines(candles, Params{}))
	require.NoError(t, b.CreateLines(candles, Params{}))

	for name, l := range a.Lines() {
		assert.Equal(t, l.Values(), b.Lines()[name].Values(), name)
	}
	assert.Equal(t, a.IsNeedToBuy(), b.IsNeedToBuy())
	assert.Equal(t, a.IsNeedToSell(), b.IsNeedToSell())
}
