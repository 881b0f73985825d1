package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategy"
)

var sineCloses = []float64{
	100.0, 103.89, 107.17, 109.32, 110.0, 109.09, 106.75, 103.35, 99.42, 95.57,
	92.43, 90.48, 90.04, 91.17, 93.69, 97.21, 101.17, 104.94, 107.94, 109.68,
	109.89, 108.55, 105.85, 102.23, 98.26, 94.56, 91.72, 90.19, 90.21, 91.77,
}

func seed(t *testing.T, path string) {
	t.Helper()
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path}, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	t0 := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	candles := make([]model.Candle, len(sineCloses))
	for i, c := range sineCloses {
		candles[i] = model.Candle{Symbol: "BTCUSDT", TS: t0.Add(time.Duration(i) * time.Minute),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1}
	}
	require.NoError(t, w.InsertCandles(context.Background(), candles))
}

func TestRunBacktest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	seed(t, path)

	cfg := &config.Config{
		SQLite:  config.SQLiteConfig{Path: path},
		Session: config.SessionConfig{HistorySize: 500, SignalBufferSize: 10},
		Strategies: []config.StrategyPlan{
			{Name: "sma_5", Type: string(strategy.TypeSMA), Params: strategy.Params{Period: 5}},
		},
	}

	rep, err := runBacktest(context.Background(), cfg, true, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 30, rep.Candles)
	assert.Equal(t, []string{"BTCUSDT"}, rep.Symbols)
	require.Len(t, rep.Signals, 4)
	assert.Equal(t, model.SideSell, rep.Signals[0].Side)
	assert.Equal(t, 103.35, rep.Signals[0].Price)

	reader, err := sqlitestore.NewReader(path, zap.NewNop())
	require.NoError(t, err)
	defer reader.Close()
	journal, err := reader.ReadSignals(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, journal, 4)
}

func TestRunBacktest_EmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: path}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	cfg := &config.Config{
		SQLite:  config.SQLiteConfig{Path: path},
		Session: config.SessionConfig{HistorySize: 500, SignalBufferSize: 10},
	}
	_, err = runBacktest(context.Background(), cfg, false, zap.NewNop())
	assert.ErrorContains(t, err, "no candles stored")
}

func TestListSignals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.db")
	seed(t, path)
	cfg := &config.Config{
		SQLite:  config.SQLiteConfig{Path: path},
		Session: config.SessionConfig{HistorySize: 500, SignalBufferSize: 10},
		Strategies: []config.StrategyPlan{
			{Name: "sma_5", Type: string(strategy.TypeSMA), Params: strategy.Params{Period: 5}},
		},
	}

	var buf bytes.Buffer
	err := listSignals(context.Background(), cfg, "", &buf, zap.NewNop())
	assert.ErrorContains(t, err, "no journaled signals")

	_, err = runBacktest(context.Background(), cfg, true, zap.NewNop())
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, listSignals(context.Background(), cfg, "", &buf, zap.NewNop()))
	out := buf.String()
	assert.Contains(t, out, "sma_5")
	assert.Contains(t, out, "103.3500")
	assert.Equal(t, 4, strings.Count(out, "BTCUSDT"))
}
