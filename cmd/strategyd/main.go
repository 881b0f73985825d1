// cmd/strategyd consumes closed candles from Redis streams, evaluates the
// configured strategy plans and publishes buy/sell signals.
//
// Usage:
//
//	strategyd --config strategies.yaml --symbols BTCUSDT,ETHUSDT
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/config"
	"github.com/Rapprise/b2s-trader-sub002/internal/logger"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategyd"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:          "strategyd",
	Short:        "live trading strategy service",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadFrom(v, path)
		if err != nil {
			return err
		}
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		log := logger.Init(cfg.Service, level)
		defer log.Sync()

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		svc, err := strategyd.New(ctx, cfg, log)
		if err != nil {
			log.Error("init failed", zap.Error(err))
			return err
		}
		return svc.Run(ctx)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("config", "", "config file (yaml, json or toml) with strategy plans")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("db", "data/candles.db", "path to the SQLite signal journal")
	flags.String("metrics-addr", ":9095", "address of the /metrics and /healthz server")
	flags.StringSlice("symbols", nil, "symbols whose candle streams are consumed")

	for name, key := range map[string]string{
		"log-level":    "log_level",
		"redis-addr":   "redis.addr",
		"db":           "sqlite.path",
		"metrics-addr": "metrics.addr",
		"symbols":      "symbols",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
