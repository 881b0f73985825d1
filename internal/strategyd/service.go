// Package strategyd wires the live strategy service: Redis candle streams
// feed a trading session whose signals fan out to Redis, the SQLite journal
// and the alert notifiers.
package strategyd

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/bus"
	"github.com/Rapprise/b2s-trader-sub002/internal/metrics"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/notification"
	"github.com/Rapprise/b2s-trader-sub002/internal/session"
	redisstore "github.com/Rapprise/b2s-trader-sub002/internal/store/redis"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategy"
)

const candleBufferSize = 5000

// Service is the top-level orchestrator of the strategy service.
type Service struct {
	cfg *config.Config
	log *zap.Logger

	prom   *metrics.Metrics
	health *metrics.HealthStatus
	server *metrics.Server

	redisReader *redisstore.Reader
	redisWriter *redisstore.Writer
	breaker     *redisstore.CircuitBreaker
	buffered    *redisstore.BufferedWriter
	journal     *sqlitestore.Writer
	dispatcher  *notification.Dispatcher

	fanout   *bus.FanOut
	sess     *session.Session
	streams  []string
	candleCh chan model.Candle
}

// New connects to Redis and SQLite and builds the session from cfg.
// A SQLite failure disables the journal; a Redis failure is fatal.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Service{
		cfg:      cfg,
		log:      log,
		prom:     metrics.NewMetrics(),
		health:   metrics.NewHealthStatus(),
		streams:  redisstore.StreamsFor(cfg.Symbols),
		candleCh: make(chan model.Candle, candleBufferSize),
	}

	var err error
	svc.redisReader, err = redisstore.NewReader(ctx, redisstore.ReaderConfig{
		Addr:          cfg.Redis.Addr,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		ConsumerGroup: cfg.Redis.ConsumerGroup,
		ConsumerName:  cfg.Redis.ConsumerName,
	}, log)
	if err != nil {
		return nil, err
	}

	svc.redisWriter, err = redisstore.New(ctx, redisstore.WriterConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		svc.redisReader.Close()
		return nil, err
	}
	svc.redisWriter.OnWrite = func(d time.Duration) { svc.prom.RedisWriteDur.Observe(d.Seconds()) }
	svc.health.RedisConnected = true

	svc.breaker = redisstore.NewCircuitBreaker(cfg.Redis.CircuitMaxFailures, cfg.Redis.CircuitReset)
	svc.breaker.OnStateChange = func(from, to redisstore.State) {
		svc.prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			svc.prom.RedisCircuitBreakerTrips.Inc()
		}
		log.Warn("redis circuit breaker", zap.Stringer("from", from), zap.Stringer("to", to))
	}
	// Buffered signals are flushed during shutdown, after ctx is cancelled.
	svc.buffered = redisstore.NewBufferedWriter(context.Background(), svc.redisWriter, svc.breaker, cfg.Redis.BufferSize, log)
	instrumentBuffer(svc.buffered, svc.prom)

	ensureDir(filepath.Dir(cfg.SQLite.Path), log)
	svc.journal, err = sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLite.Path}, log)
	if err != nil {
		log.Warn("sqlite journal disabled", zap.Error(err))
		svc.journal = nil
	} else {
		svc.journal.OnCommit = func(d time.Duration) { svc.prom.SQLiteCommitDur.Observe(d.Seconds()) }
		svc.health.SQLiteOK = true
	}

	svc.dispatcher = notification.NewDispatcher(log, 0, notifiers(cfg, log)...)

	svc.fanout = bus.New(cfg.Session.SignalBufferSize, log)
	svc.fanout.OnDrop = func(sink string) { svc.prom.SinkDropsTotal.WithLabelValues(sink).Inc() }

	svc.sess, err = session.New(strategy.NewRegistry(log), cfg.Plans(),
		session.WithLogger(log),
		session.WithHistorySize(cfg.Session.HistorySize),
		session.WithMetrics(svc.prom),
		session.WithHealth(svc.health),
		session.WithSink(svc.fanout),
	)
	if err != nil {
		svc.close()
		return nil, err
	}

	svc.server = metrics.NewServer(cfg.Metrics.Addr, svc.prom, svc.health, log)
	return svc, nil
}

// notifiers builds the configured alert backends. Signals are always logged.
func notifiers(cfg *config.Config, log *zap.Logger) []notification.Notifier {
	out := []notification.Notifier{notification.NewLogNotifier(log)}
	if cfg.Notify.WebhookURL != "" {
		out = append(out, notification.NewWebhookNotifier(cfg.Notify.WebhookURL, log))
	}
	if cfg.Notify.TelegramBotToken != "" && cfg.Notify.TelegramChatID != "" {
		out = append(out, notification.NewTelegramNotifier(cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, log))
	}
	return out
}

// Run starts every subsystem and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	svc.log.Info("strategy service starting",
		zap.Strings("streams", svc.streams),
		zap.Strings("plans", svc.sess.PlanNames()))

	svc.server.Start()

	var sinks sync.WaitGroup
	svc.startSinks(ctx, &sinks)

	loopDone := make(chan error, 1)
	go func() { loopDone <- svc.sess.Run(ctx, svc.candleCh) }()

	if len(svc.streams) > 0 {
		if err := svc.redisReader.EnsureConsumerGroup(ctx, svc.streams); err != nil {
			svc.log.Warn("consumer group setup failed", zap.Error(err))
		}
		if err := svc.redisReader.RecoverPending(ctx, svc.streams, svc.candleCh); err != nil {
			svc.log.Warn("pending recovery failed", zap.Error(err))
		}
		svc.startConsumer(ctx)
		svc.startPELReclaimer(ctx)
	} else {
		svc.log.Warn("no symbols configured, nothing to consume")
	}

	svc.health.StartLivenessChecker(ctx, svc.redisWriter.Client(), svc.journalDB(), 10*time.Second)
	go svc.saturationLoop(ctx, 5*time.Second)

	svc.log.Info("strategy service running")

	<-ctx.Done()
	<-loopDone

	svc.shutdown(&sinks)
	return nil
}

func (svc *Service) journalDB() *sql.DB {
	if svc.journal == nil {
		return nil
	}
	return svc.journal.DB()
}

// shutdown drains the sinks and closes every connection.
func (svc *Service) shutdown(sinks *sync.WaitGroup) {
	svc.log.Info("shutdown signal received, draining sinks")

	svc.fanout.Close()
	sinks.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := svc.server.Stop(stopCtx); err != nil {
		svc.log.Warn("metrics server stop", zap.Error(err))
	}

	svc.close()
	svc.log.Info("shutdown complete")
}

func (svc *Service) close() {
	if svc.journal != nil {
		svc.journal.Close()
	}
	if svc.redisWriter != nil {
		svc.redisWriter.Close()
	}
	if svc.redisReader != nil {
		svc.redisReader.Close()
	}
}

// instrumentBuffer counts buffered, evicted and flushed signals on m.
func instrumentBuffer(bw *redisstore.BufferedWriter, m *metrics.Metrics) {
	bw.OnBuffer = m.RedisBufferedWrites.Inc
	bw.OnDrop = m.RedisBufferDrops.Inc
	bw.OnFlush = func(n int) { m.RedisBufferFlushed.Add(float64(n)) }
}

// ensureDir creates dir if needed. A failure is logged; opening the journal
// then fails and the service runs without it.
func ensureDir(dir string, log *zap.Logger) {
	if dir == "" || dir == "." {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("cannot create sqlite directory", zap.String("dir", dir), zap.Error(err))
	}
}
