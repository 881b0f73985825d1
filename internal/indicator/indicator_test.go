package indicator

import (
	"fmt"
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rapprise/b2s-trader-sub002/internal/line"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func hlc(high, low, close float64) model.Candle {
	return model.Candle{Symbol: "TEST", Open: close, High: high, Low: low, Close: close}
}

// wave is a deterministic, non-trivial price series for oracle comparisons.
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)*0.37
	}
	return out
}

// ────────────────────────────────────────────────────────────
// SMA
// ────────────────────────────────────────────────────────────

func TestSMA_Period3(t *testing.T) {
	// Prices: 100, 102, 104, 103, 105
	// SMA after candle 3: (100+102+104)/3 = 102
	// SMA after candle 4: (102+104+103)/3 = 103
	// SMA after candle 5: (104+103+105)/3 = 104
	sma := NewSMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102, 103, 104}
	ready := []bool{false, false, true, true, true}

	for i, p := range prices {
		sma.Update(p)
		assert.Equal(t, ready[i], sma.Ready(), "candle %d", i)
		if ready[i] {
			assert.InDelta(t, expected[i], sma.Value(), 1e-9, "candle %d", i)
		}
	}
}

func TestSMA_KnownSeries(t *testing.T) {
	closes := []float64{22.27, 22.19, 22.08, 22.17, 22.18, 22.13, 22.23, 22.43, 22.24, 22.29}
	got := Series(NewSMA(10), closes)
	require.Len(t, got, 1)
	assert.InDelta(t, 22.220999999999997, got[0], 1e-9)
}

func TestSMA_Reset(t *testing.T) {
	sma := NewSMA(2)
	sma.Update(10)
	sma.Update(20)
	require.True(t, sma.Ready())

	sma.Reset()
	assert.False(t, sma.Ready())
	assert.Equal(t, 0.0, sma.Value())

	sma.Update(1)
	sma.Update(3)
	assert.InDelta(t, 2.0, sma.Value(), 1e-12)
}

func TestSMA_MatchesTalib(t *testing.T) {
	prices := wave(120)
	for _, period := range []int{2, 5, 14, 30} {
		t.Run(fmt.Sprintf("period_%d", period), func(t *testing.T) {
			got := Series(NewSMA(period), prices)
			want := talib.Sma(prices, period)[period-1:]
			require.Len(t, got, len(prices)-period+1)
			for i := range got {
				assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_Period3(t *testing.T) {
	// k = 2/(3+1) = 0.5
	// seed = (100+102+104)/3 = 102
	// 103 -> 103*0.5 + 102*0.5 = 102.5
	// 105 -> 105*0.5 + 102.5*0.5 = 103.75
	ema := NewEMA(3)
	prices := []float64{100, 102, 104, 103, 105}
	expected := []float64{0, 0, 102, 102.5, 103.75}

	for i, p := range prices {
		ema.Update(p)
		if i >= 2 {
			require.True(t, ema.Ready())
			assert.InDelta(t, expected[i], ema.Value(), 1e-9, "candle %d", i)
		} else {
			assert.False(t, ema.Ready())
		}
	}
}

func TestEMA_SizeAndSeed(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	got := Series(NewEMA(4), prices)
	require.Len(t, got, 5)
	assert.InDelta(t, 2.5, got[0], 1e-12)
}

func TestEMA_MatchesTalib(t *testing.T) {
	prices := wave(150)
	for _, period := range []int{3, 12, 26} {
		t.Run(fmt.Sprintf("period_%d", period), func(t *testing.T) {
			got := Series(NewEMA(period), prices)
			want := talib.Ema(prices, period)[period-1:]
			require.Len(t, got, len(want))
			for i := range got {
				assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_NotReadyUntilPeriodDeltas(t *testing.T) {
	rsi := NewRSI(3)
	for i, p := range []float64{10, 11, 12} {
		rsi.Update(p)
		assert.False(t, rsi.Ready(), "candle %d", i)
	}
	rsi.Update(11)
	assert.True(t, rsi.Ready())
}

func TestRSI_WindowedSums(t *testing.T) {
	// deltas over the last 3 moves of 10, 11, 12, 11: +1, +1, -1
	// gains=2, losses=1, RS=2 -> RSI = 100 - 100/3 = 66.666...
	rsi := NewRSI(3)
	for _, p := range []float64{10, 11, 12, 11} {
		rsi.Update(p)
	}
	assert.InDelta(t, 100-100.0/3, rsi.Value(), 1e-9)

	// next move 13: window is +1, -1, +2 -> gains=3, losses=1 -> 75
	rsi.Update(13)
	assert.InDelta(t, 75.0, rsi.Value(), 1e-9)
}

func TestRSI_NoLossesClampsTo100(t *testing.T) {
	rsi := NewRSI(4)
	for _, p := range []float64{1, 2, 3, 4, 5, 6} {
		rsi.Update(p)
	}
	assert.Equal(t, 100.0, rsi.Value())

	flat := NewRSI(2)
	for _, p := range []float64{5, 5, 5} {
		flat.Update(p)
	}
	require.True(t, flat.Ready())
	assert.Equal(t, 100.0, flat.Value())
}

func TestRSI_OnlyLossesIsZero(t *testing.T) {
	got := Series(NewRSI(3), []float64{10, 9, 8, 7, 6})
	require.Len(t, got, 2)
	for _, v := range got {
		assert.InDelta(t, 0.0, v, 1e-12)
	}
}

// ────────────────────────────────────────────────────────────
// StdDev
// ────────────────────────────────────────────────────────────

func TestStdDev_Population(t *testing.T) {
	// 2, 4, 4, 4, 5, 5, 7, 9: mean 5, population variance 4
	got := Series(NewStdDev(8), []float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.Len(t, got, 1)
	assert.InDelta(t, 2.0, got[0], 1e-12)
}

func TestStdDev_MatchesTalibBands(t *testing.T) {
	prices := wave(80)
	period := 20
	upper, middle, _ := talib.BBands(prices, period, 1, 1, talib.SMA)

	sd := Series(NewStdDev(period), prices)
	require.Len(t, sd, len(prices)-period+1)
	for i := range sd {
		j := i + period - 1
		assert.InDelta(t, upper[j]-middle[j], sd[i], 1e-9, "index %d", i)
	}
}

// ────────────────────────────────────────────────────────────
// Stochastic %K
// ────────────────────────────────────────────────────────────

func TestStochK_Window(t *testing.T) {
	candles := []model.Candle{
		hlc(12, 8, 10),
		hlc(14, 9, 13),
		hlc(15, 10, 11),
		hlc(13, 11, 12),
	}
	out := line.New(0)
	BuildStochK(3, candles, out)
	require.Equal(t, 2, out.Size())

	// window 1: low 8, high 15, close 11 -> 3/7*100
	first, _ := out.Get(0)
	assert.InDelta(t, 300.0/7, first, 1e-9)
	// window 2: low 9, high 15, close 12 -> 3/6*100
	second, _ := out.Get(1)
	assert.InDelta(t, 50.0, second, 1e-9)
}

func TestStochK_FlatWindowIs50(t *testing.T) {
	candles := []model.Candle{hlc(5, 5, 5), hlc(5, 5, 5)}
	out := line.New(0)
	BuildStochK(2, candles, out)
	require.Equal(t, 1, out.Size())
	v, _ := out.Last()
	assert.Equal(t, 50.0, v)
}

func TestBuild_ClearsOutput(t *testing.T) {
	out := line.FromValues([]float64{9, 9, 9})
	Build(NewSMA(2), []float64{1, 3, 5}, out)
	assert.Equal(t, []float64{2, 4}, out.Values())

	Build(NewSMA(2), []float64{1}, out)
	assert.Equal(t, 0, out.Size())
}
