package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "list the signals journaled by run --journal or strategyd",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(cmd, "backtest")
		if err != nil {
			return err
		}
		defer log.Sync()

		symbol, _ := cmd.Flags().GetString("symbol")
		return listSignals(cmd.Context(), cfg, symbol, os.Stdout, log)
	},
}

func init() {
	signalsCmd.Flags().String("symbol", "", "symbol to list (default: every symbol)")
}

// listSignals prints the journal of symbol, or every journaled signal when
// symbol is empty.
func listSignals(ctx context.Context, cfg *config.Config, symbol string, w io.Writer, log *zap.Logger) error {
	reader, err := sqlitestore.NewReader(cfg.SQLite.Path, log)
	if err != nil {
		return err
	}
	defer reader.Close()

	signals, err := reader.ReadSignals(ctx, symbol)
	if err != nil {
		return errors.Wrapf(err, "signals of %q", symbol)
	}
	if len(signals) == 0 {
		return errors.New("no journaled signals")
	}
	renderSignals(w, signals)
	return nil
}
