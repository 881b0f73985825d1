package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr          string
	Password      string
	DB            int
	ConsumerGroup string // consumer group name, e.g. "strategyd"
	ConsumerName  string // unique consumer name, e.g. hostname
}

// Reader consumes closed candles from Redis Streams via consumer groups.
type Reader struct {
	client        *goredis.Client
	consumerGroup string
	consumerName  string
	log           *zap.Logger
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(ctx context.Context, cfg ReaderConfig, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := connect(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = "strategyd"
	}
	consumer := cfg.ConsumerName
	if consumer == "" {
		consumer = "worker-1"
	}

	log.Info("redis reader connected",
		zap.String("addr", cfg.Addr),
		zap.String("group", group),
		zap.String("consumer", consumer))
	return &Reader{
		client:        client,
		consumerGroup: group,
		consumerName:  consumer,
		log:           log,
	}, nil
}

// Client returns the underlying Redis client for health checks.
func (r *Reader) Client() *goredis.Client { return r.client }

// StreamsFor maps symbols to their candle stream keys.
func StreamsFor(symbols []string) []string {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = model.CandleStreamKey(s)
	}
	return streams
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// EnsureConsumerGroup creates the consumer group on every stream if missing.
// Fresh groups start at "$" (only new messages).
func (r *Reader) EnsureConsumerGroup(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := r.client.XGroupCreateMkStream(ctx, stream, r.consumerGroup, "$").Err()
		if err != nil && !isBusyGroup(err) {
			return errors.Wrapf(err, "xgroup create %s", stream)
		}
	}
	return nil
}

// deliver decodes and forwards stream messages, acknowledging each one.
// Bad messages are acknowledged too so they cannot poison the group.
func (r *Reader) deliver(ctx context.Context, stream string, msgs []goredis.XMessage, out chan<- model.Candle) (int, error) {
	n := 0
	for _, msg := range msgs {
		c, err := decodeCandle(msg.Values)
		if err != nil {
			r.log.Warn("dropping stream entry",
				zap.String("stream", stream),
				zap.String("id", msg.ID),
				zap.Error(err))
			r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
			continue
		}

		select {
		case out <- c:
		case <-ctx.Done():
			return n, ctx.Err()
		}

		r.client.XAck(ctx, stream, r.consumerGroup, msg.ID)
		n++
	}
	return n, nil
}

// ConsumeCandles blocks on XREADGROUP and sends decoded candles to out.
// Returns when ctx is cancelled.
func (r *Reader) ConsumeCandles(ctx context.Context, streams []string, out chan<- model.Candle) error {
	// [stream1, stream2, ..., ">", ">", ...]
	args := make([]string, len(streams)*2)
	for i, s := range streams {
		args[i] = s
		args[len(streams)+i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.consumerGroup,
			Consumer: r.consumerName,
			Streams:  args,
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			r.log.Error("xreadgroup failed", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			if _, err := r.deliver(ctx, stream.Stream, stream.Messages, out); err != nil {
				return err
			}
		}
	}
}

// RecoverPending re-delivers messages left unacknowledged by a previous run,
// giving at-least-once delivery across restarts.
func (r *Reader) RecoverPending(ctx context.Context, streams []string, out chan<- model.Candle) error {
	for _, stream := range streams {
		for {
			pending, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
				Stream: stream,
				Group:  r.consumerGroup,
				Start:  "-",
				End:    "+",
				Count:  100,
			}).Result()
			if err != nil || len(pending) == 0 {
				break
			}

			ids := make([]string, len(pending))
			for i, p := range pending {
				ids[i] = p.ID
			}

			claimed, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
				Stream:   stream,
				Group:    r.consumerGroup,
				Consumer: r.consumerName,
				MinIdle:  0,
				Messages: ids,
			}).Result()
			if err != nil {
				r.log.Error("xclaim failed", zap.String("stream", stream), zap.Error(err))
				break
			}

			if _, err := r.deliver(ctx, stream, claimed, out); err != nil {
				return err
			}
			if len(claimed) < len(ids) {
				break
			}
		}
	}
	return nil
}

// reclaimStale claims PEL entries of other consumers idle longer than minIdle.
func (r *Reader) reclaimStale(ctx context.Context, stream string, minIdle time.Duration, batchSize int64) ([]goredis.XMessage, error) {
	pending, err := r.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream: stream,
		Group:  r.consumerGroup,
		Start:  "-",
		End:    "+",
		Count:  batchSize,
		Idle:   minIdle,
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	var staleIDs []string
	for _, p := range pending {
		if p.Consumer != r.consumerName {
			staleIDs = append(staleIDs, p.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil, nil
	}

	claimed, err := r.client.XClaim(ctx, &goredis.XClaimArgs{
		Stream:   stream,
		Group:    r.consumerGroup,
		Consumer: r.consumerName,
		MinIdle:  minIdle,
		Messages: staleIDs,
	}).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "xclaim %s", stream)
	}
	return claimed, nil
}

// StartPELReclaimer periodically steals stale pending entries from dead
// consumers and re-delivers them to out. Runs until ctx is cancelled.
func (r *Reader) StartPELReclaimer(ctx context.Context, streams []string, interval, minIdle time.Duration, out chan<- model.Candle, onReclaim func(count int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := 0
			for _, stream := range streams {
				claimed, err := r.reclaimStale(ctx, stream, minIdle, 50)
				if err != nil {
					r.log.Warn("PEL reclaim failed", zap.String("stream", stream), zap.Error(err))
					continue
				}
				n, err := r.deliver(ctx, stream, claimed, out)
				total += n
				if err != nil {
					return
				}
			}
			if total > 0 {
				r.log.Info("reclaimed stale PEL entries", zap.Int("count", total))
				if onReclaim != nil {
					onReclaim(total)
				}
			}
		}
	}
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
