package strategyd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/metrics"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/notification"
	redisstore "github.com/Rapprise/b2s-trader-sub002/internal/store/redis"
)

func TestNotifiers(t *testing.T) {
	cfg := &config.Config{}
	got := notifiers(cfg, nil)
	assert.Len(t, got, 1)
	assert.IsType(t, &notification.LogNotifier{}, got[0])

	cfg.Notify.WebhookURL = "http://hooks.local/alerts"
	cfg.Notify.TelegramBotToken = "token"
	assert.Len(t, notifiers(cfg, nil), 2, "telegram needs a chat id too")

	cfg.Notify.TelegramChatID = "42"
	got = notifiers(cfg, nil)
	assert.Len(t, got, 3)
	assert.IsType(t, &notification.WebhookNotifier{}, got[1])
	assert.IsType(t, &notification.TelegramNotifier{}, got[2])
}

type downPublisher struct{ down bool }

func (p *downPublisher) PublishSignal(context.Context, model.Signal) error {
	if p.down {
		return errors.New("redis down")
	}
	return nil
}

func TestInstrumentBuffer(t *testing.T) {
	m := metrics.NewMetrics()
	pub := &downPublisher{down: true}
	cb := redisstore.NewCircuitBreaker(1, time.Hour)
	bw := redisstore.NewBufferedWriter(context.Background(), pub, cb, 2, zap.NewNop())
	instrumentBuffer(bw, m)

	sig := model.Signal{Strategy: "macd", Symbol: "BTCUSDT", Side: model.SideBuy}
	assert.Error(t, bw.WriteSignal(sig)) // trips the breaker
	for i := 0; i < 3; i++ {
		require.NoError(t, bw.WriteSignal(sig))
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RedisBufferedWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RedisBufferDrops))

	pub.down = false
	bw.Flush()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RedisBufferFlushed))
}

func TestEnsureDir(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	log := zap.New(core)

	dir := filepath.Join(t.TempDir(), "data", "journal")
	ensureDir(dir, log)
	assert.DirExists(t, dir)
	assert.Zero(t, logs.Len())

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	ensureDir(filepath.Join(file, "sub"), log)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "cannot create sqlite directory", entry.Message)
	assert.Contains(t, entry.ContextMap(), "error")
}
