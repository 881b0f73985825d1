package indicator

// RSI calculates the Relative Strength Index over a rolling window of
// close-to-close deltas: RSI = 100 - 100/(1 + gains/losses), where gains and
// losses are plain sums over the last period deltas (no Wilder smoothing).
// A window without losses yields 100.
type RSI struct {
	period  int
	deltas  []float64 // circular buffer of the last period deltas
	idx     int
	count   int // values received
	prev    float64
	current float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	if period < 1 {
		period = 1
	}
	return &RSI{
		period: period,
		deltas: make([]float64, period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(value float64) {
	r.count++
	if r.count == 1 {
		// First value: no delta yet
		r.prev = value
		return
	}

	r.deltas[r.idx] = value - r.prev
	r.idx = (r.idx + 1) % r.period
	r.prev = value

	if !r.Ready() {
		return
	}

	var gains, losses float64
	for _, d := range r.deltas {
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	r.current = rsiFromSums(gains, losses)
}

func rsiFromSums(gains, losses float64) float64 {
	if losses == 0 {
		return 100.0
	}
	rs := gains / losses
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// Reset clears the RSI state for reuse.
func (r *RSI) Reset() {
	r.idx = 0
	r.count = 0
	r.prev = 0
	r.current = 0
	for i := range r.deltas {
		r.deltas[i] = 0
	}
}
