package strategy

// emaSettleFactor times (period+1) bars shrinks the weight of an EMA seed,
// (1-2/(period+1))^n, below float64 epsilon. After that many bars a line
// rebuilt from a sliding window reproduces its previous values exactly,
// which duplicate suppression relies on.
const emaSettleFactor = 20

func emaSettle(period int) int { return emaSettleFactor * (period + 1) }

// MinHistory returns the number of trailing candles a caller must keep so
// that repeated CreateLines calls over a sliding window of that size see
// stable lines. Types not known to the package return 0.
func MinHistory(t Type, p Params) int {
	switch t {
	case TypeSMA:
		p = p.withDefaults(movingAverageDefaults)
		return p.Period + p.CrossingInterval
	case TypeEMA:
		p = p.withDefaults(movingAverageDefaults)
		return emaSettle(p.Period) + p.CrossingInterval
	case TypeBollingerBands, TypeBollingerBandsAdvanced:
		p = p.withDefaults(bollingerDefaults)
		return p.Period + p.CrossingInterval
	case TypeRSI:
		p = p.withDefaults(rsiDefaults)
		return p.Period + p.CrossingInterval + 1
	case TypeMACD:
		p = p.withDefaults(macdDefaults)
		return emaSettle(p.SlowPeriod) + p.SignalPeriod + p.CrossingInterval
	case TypeStochasticOscillator:
		p = p.withDefaults(stochasticDefaults)
		return p.Period + p.SmoothFastPeriod + p.SmoothSlowPeriod + p.CrossingInterval
	case TypeMovingAverageCrossing:
		p = p.withDefaults(maCrossingDefaults)
		n := p.SlowPeriod
		if p.MovingAverage == MovingAverageEMA {
			n = emaSettle(p.SlowPeriod)
		}
		if p.RSIFilterPeriod+1 > n {
			n = p.RSIFilterPeriod + 1
		}
		return n + p.CrossingInterval
	}
	return 0
}
