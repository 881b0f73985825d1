package main

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/replay"
	"github.com/Rapprise/b2s-trader-sub002/internal/session"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "replay stored candles through the configured strategy plans",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd, "backtest")
		if err != nil {
			return err
		}
		defer log.Sync()

		verbose, _ := cmd.Flags().GetBool("verbose")
		journal, _ := cmd.Flags().GetBool("journal")

		ctx, cancel := signalContext()
		defer cancel()

		rep, err := runBacktest(ctx, cfg, journal, log)
		if err != nil {
			return err
		}
		rep.Render(os.Stdout, verbose)
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "replay stored candles into Redis candle streams for strategyd",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd, "backtest")
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, cancel := signalContext()
		defer cancel()
		return feedRedis(ctx, cfg, log)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, feedCmd} {
		c.Flags().Float64("speed", 0, "playback speed multiplier (0=max, 1=realtime, 100=100x)")
		c.Flags().Int64("from", 0, "unix timestamp to start the replay after (0=all)")
		c.Flags().StringSlice("symbols", nil, "symbols to replay (default: every stored symbol)")
	}
	runCmd.Flags().Bool("verbose", false, "print every signal")
	runCmd.Flags().Bool("journal", false, "write emitted signals to the SQLite journal")
}

// resolveSymbols returns the configured symbols or every stored one.
func resolveSymbols(ctx context.Context, cfg *config.Config, reader *sqlitestore.Reader) ([]string, error) {
	if len(cfg.Symbols) > 0 {
		return cfg.Symbols, nil
	}
	symbols, err := reader.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, errors.Errorf("no candles stored in %s", cfg.SQLite.Path)
	}
	return symbols, nil
}

// runBacktest replays stored candles through a fresh session and collects
// every emitted signal.
func runBacktest(ctx context.Context, cfg *config.Config, journal bool, log *zap.Logger) (*report, error) {
	reader, err := sqlitestore.NewReader(cfg.SQLite.Path, log)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	symbols, err := resolveSymbols(ctx, cfg, reader)
	if err != nil {
		return nil, err
	}

	rep := &report{Symbols: symbols}
	opts := []session.Option{
		session.WithLogger(log),
		session.WithHistorySize(cfg.Session.HistorySize),
		session.WithSink(rep),
	}

	if journal {
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLite.Path}, log)
		if err != nil {
			return nil, err
		}
		defer w.Close()
		opts = append(opts, session.WithSink(session.SinkFunc(func(sig model.Signal) {
			if err := w.WriteSignal(ctx, sig); err != nil {
				log.Warn("journal write failed", zap.Error(err))
			}
		})))
	}

	sess, err := session.New(strategy.NewRegistry(log), cfg.Plans(), opts...)
	if err != nil {
		return nil, err
	}

	candles := make(chan model.Candle, 1024)
	replayErr := make(chan error, 1)
	go func() {
		defer close(candles)
		n, err := replay.New(reader, log).Run(ctx, symbols, cfg.Backtest.FromTS, cfg.Backtest.Speed, candles)
		rep.Candles = n
		replayErr <- err
	}()

	start := time.Now()
	if err := sess.Run(ctx, candles); err != nil {
		return nil, err
	}
	if err := <-replayErr; err != nil {
		return nil, err
	}
	rep.Duration = time.Since(start)
	return rep, nil
}
