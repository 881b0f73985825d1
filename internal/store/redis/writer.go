// Package redis consumes candle streams and publishes strategy signals.
package redis

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

const (
	candleStreamMaxLen = 12000
	signalStreamMaxLen = 5000
	defaultLatestTTL   = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer writes signals and candles to Redis.
type Writer struct {
	client *goredis.Client
	log    *zap.Logger

	// OnWrite, when set, receives the latency of every pipeline.
	OnWrite func(time.Duration)
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

func connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "redis ping %s", addr)
	}
	return client, nil
}

// New creates a new Redis Writer and pings the server.
func New(ctx context.Context, cfg WriterConfig, log *zap.Logger) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := connect(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}

	log.Info("redis writer connected", zap.String("addr", cfg.Addr))
	return &Writer{client: client, log: log}, nil
}

// PublishSignal performs pipelined writes for one signal:
// XADD signal:{strategy}:{symbol}, SET the latest key with TTL and PUBLISH
// to pub:signal:{symbol}.
func (w *Writer) PublishSignal(ctx context.Context, sig model.Signal) error {
	jsonData := string(sig.JSON())
	start := time.Now()

	pipe := w.client.Pipeline()

	// XADD to stream with auto-trimming
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: sig.StreamKey(),
		MaxLen: signalStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	// SET latest signal with TTL
	pipe.Set(ctx, sig.LatestKey(), jsonData, defaultLatestTTL)

	// PUBLISH for real-time subscribers
	pipe.Publish(ctx, sig.PubSubChannel(), jsonData)

	_, err := pipe.Exec(ctx)
	if w.OnWrite != nil {
		w.OnWrite(time.Since(start))
	}
	return errors.Wrapf(err, "redis pipeline %s", sig.StreamKey())
}

// PublishCandle appends a candle to its candle:{symbol} stream, where the
// strategy service consumes it.
func (w *Writer) PublishCandle(ctx context.Context, c model.Candle) error {
	err := w.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: c.StreamKey(),
		MaxLen: candleStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(c.JSON()),
		},
	}).Err()
	return errors.Wrapf(err, "redis xadd %s", c.StreamKey())
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
