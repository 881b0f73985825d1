// cmd/backtest imports historical candles into SQLite and replays them
// through the configured strategy plans.
//
// Usage:
//
//	backtest import --symbol BTCUSDT data/btcusdt_1m.csv
//	backtest run --config strategies.yaml --symbols BTCUSDT,ETHUSDT
//	backtest feed --speed 60 --symbols BTCUSDT
//	backtest signals --symbol BTCUSDT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/logger"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:          "backtest",
	Short:        "replay stored candles through trading strategies",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json or toml) with strategy plans")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "data/candles.db", "path to the SQLite candle store")

	rootCmd.AddCommand(importCmd, runCmd, feedCmd, signalsCmd)
}

// flagKeys maps command-line flags to config keys. A flag set on the command
// line overrides the environment and the config file.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"db":        "sqlite.path",
	"speed":     "backtest.speed",
	"from":      "backtest.from_ts",
	"symbols":   "symbols",
}

func bindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// setup loads the configuration and builds the service logger.
func setup(cmd *cobra.Command, service string) (*config.Config, *zap.Logger, error) {
	if err := bindFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(v, path)
	if err != nil {
		return nil, nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Init(service, level), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
