package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/replay"
	redisstore "github.com/Rapprise/b2s-trader-sub002/internal/store/redis"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
)

// feedRedis replays stored candles into their candle:{symbol} streams.
func feedRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	reader, err := sqlitestore.NewReader(cfg.SQLite.Path, log)
	if err != nil {
		return err
	}
	defer reader.Close()

	symbols, err := resolveSymbols(ctx, cfg, reader)
	if err != nil {
		return err
	}

	w, err := redisstore.New(ctx, redisstore.WriterConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return err
	}
	defer w.Close()

	candles := make(chan model.Candle, 1024)
	replayErr := make(chan error, 1)
	go func() {
		defer close(candles)
		_, err := replay.New(reader, log).Run(ctx, symbols, cfg.Backtest.FromTS, cfg.Backtest.Speed, candles)
		replayErr <- err
	}()

	published := 0
	for c := range candles {
		if err := w.PublishCandle(ctx, c); err != nil {
			log.Warn("candle publish failed", zap.String("symbol", c.Symbol), zap.Error(err))
			continue
		}
		published++
	}
	log.Info("feed completed", zap.Int("published", published), zap.Strings("symbols", symbols))
	return <-replayErr
}
