// Package replay emits stored candles at a configurable speed for backtesting.
package replay

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// maxGap caps the simulated wait between two candles.
const maxGap = 5 * time.Second

// Source reads stored candles of one symbol, ascending by time.
// *sqlite.Reader implements it.
type Source interface {
	ReadCandles(ctx context.Context, symbol string, afterTS int64) ([]model.Candle, error)
}

// Replayer reads historical candles and replays them at a speed multiplier.
type Replayer struct {
	src Source
	log *zap.Logger
}

// New creates a Replayer backed by src.
func New(src Source, log *zap.Logger) *Replayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Replayer{src: src, log: log}
}

// Load reads the candles of every symbol after fromTS (unix seconds, 0 = all)
// and merges them by timestamp. Candles sharing a timestamp keep the order
// of symbols.
func (r *Replayer) Load(ctx context.Context, symbols []string, fromTS int64) ([]model.Candle, error) {
	var all []model.Candle
	for _, s := range symbols {
		candles, err := r.src.ReadCandles(ctx, s, fromTS)
		if err != nil {
			return nil, errors.Wrapf(err, "load candles for %s", s)
		}
		all = append(all, candles...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].TS.Before(all[j].TS) })
	return all, nil
}

// Run replays the candles of symbols into out. speed controls the playback
// rate: 1 = real time, 10 = ten times faster, 0 = as fast as possible.
// out is not closed. Returns the number of candles emitted.
func (r *Replayer) Run(ctx context.Context, symbols []string, fromTS int64, speed float64, out chan<- model.Candle) (int, error) {
	candles, err := r.Load(ctx, symbols, fromTS)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		r.log.Warn("no candles to replay", zap.Strings("symbols", symbols))
		return 0, nil
	}

	r.log.Info("replay started",
		zap.Int("candles", len(candles)),
		zap.Int("symbols", len(symbols)),
		zap.Float64("speed", speed))

	var prevTS time.Time
	emitted := 0
	for _, c := range candles {
		if speed > 0 && !prevTS.IsZero() {
			if gap := c.TS.Sub(prevTS); gap > 0 {
				wait := time.Duration(float64(gap) / speed)
				if wait > maxGap {
					wait = maxGap
				}
				select {
				case <-ctx.Done():
					return emitted, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		prevTS = c.TS

		select {
		case out <- c:
			emitted++
		case <-ctx.Done():
			r.log.Info("replay cancelled", zap.Int("emitted", emitted))
			return emitted, ctx.Err()
		}
	}

	r.log.Info("replay completed", zap.Int("emitted", emitted))
	return emitted, nil
}
