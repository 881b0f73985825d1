package strategyd

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/bus"
)

// startSinks subscribes every signal consumer to the fan-out. Sinks stop
// when the fan-out closes their channel, so pending signals are drained on
// shutdown.
func (svc *Service) startSinks(_ context.Context, wg *sync.WaitGroup) {
	drain := context.Background()

	redisCh := svc.fanout.Subscribe("redis")
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.buffered.Run(drain, redisCh)
	}()

	if svc.journal != nil {
		journalCh := svc.fanout.Subscribe("sqlite")
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.journal.Run(drain, journalCh)
		}()
	}

	notifyCh := svc.fanout.Subscribe("notify")
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.dispatcher.Run(drain, notifyCh)
	}()
}

// startConsumer starts the XREADGROUP candle consumer.
func (svc *Service) startConsumer(ctx context.Context) {
	go func() {
		if err := svc.redisReader.ConsumeCandles(ctx, svc.streams, svc.candleCh); err != nil && ctx.Err() == nil {
			svc.log.Error("candle consumer stopped", zap.Error(err))
		}
	}()
}

// startPELReclaimer periodically re-delivers candles stuck with dead consumers.
func (svc *Service) startPELReclaimer(ctx context.Context) {
	interval, minIdle := svc.cfg.Redis.PELInterval, svc.cfg.Redis.PELMinIdle
	if interval <= 0 {
		return
	}
	go svc.redisReader.StartPELReclaimer(ctx, svc.streams, interval, minIdle, svc.candleCh,
		func(count int) { svc.prom.PELMessagesReclaimed.Add(float64(count)) })
	svc.log.Info("PEL reclaimer started", zap.Duration("interval", interval), zap.Duration("min_idle", minIdle))
}

// saturationLoop reports channel fill levels as percentages.
func (svc *Service) saturationLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := append(svc.fanout.ChannelStats(),
				bus.ChannelStat{Name: "candles", Len: len(svc.candleCh), Cap: cap(svc.candleCh)})
			for _, st := range stats {
				if st.Cap == 0 {
					continue
				}
				svc.prom.ChannelSaturationPct.WithLabelValues(st.Name).Set(float64(st.Len) / float64(st.Cap) * 100)
			}
		}
	}
}
