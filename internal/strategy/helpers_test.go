package strategy

import (
	"math"
	"time"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

var t0 = time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)

// candlesFromCloses builds one-minute candles with high/low one unit around close.
func candlesFromCloses(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Symbol: "BTCUSDT",
			TS:     t0.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	return out
}

// sineCloses is 100+10*sin(i/2.5) rounded to cents: two full swings in 30 bars.
var sineCloses = []float64{
	100.0, 103.89, 107.17, 109.32, 110.0, 109.09, 106.75, 103.35, 99.42, 95.57,
	92.43, 90.48, 90.04, 91.17, 93.69, 97.21, 101.17, 104.94, 107.94, 109.68,
	109.89, 108.55, 105.85, 102.23, 98.26, 94.56, 91.72, 90.19, 90.21, 91.77,
}

// macdCloses rises quadratically for 34 bars, then falls by 4 per bar.
func macdCloses() []float64 {
	top := 100 + 0.1*33*33
	out := make([]float64, 0, 40)
	for i := 0; i < 34; i++ {
		out = append(out, 100+0.1*float64(i)*float64(i))
	}
	for i := 34; i < 40; i++ {
		out = append(out, top-4*float64(i-33))
	}
	return out
}

type event struct {
	bar  int // candle count of the evaluated prefix
	side model.Side
}

// replay evaluates s on every prefix of candles starting at from, passing the
// recorded crossing points back like a trading session does. Prefixes that
// are too short for a crossing are skipped.
func replay(s TradeStrategy, candles []model.Candle, from int, p Params) ([]event, error) {
	var events []event
	for n := from; n <= len(candles); n++ {
		if err := s.CreateLines(candles[:n], p); err != nil {
			if isSmall(err) {
				continue
			}
			return events, err
		}
		if s.IsNeedToBuy() {
			events = append(events, event{n, model.SideBuy})
			p.LastBuyPoint = Point(s.LastBuyCrossingPoint())
		}
		if s.IsNeedToSell() {
			events = append(events, event{n, model.SideSell})
			p.LastSellPoint = Point(s.LastSellCrossingPoint())
		}
	}
	return events, nil
}

func isSmall(err error) bool {
	return Kind(err) == "small_analyzed_period"
}

func stdDev(values []float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
