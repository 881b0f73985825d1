// Package config loads service configuration from the environment, an
// optional .env file and an optional config file holding strategy plans.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/Rapprise/b2s-trader-sub002/internal/session"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategy"
)

// EnvPrefix prefixes every environment variable, e.g. B2S_REDIS_ADDR.
const EnvPrefix = "B2S"

// Config holds all application configuration.
type Config struct {
	Service  string `mapstructure:"service"`
	LogLevel string `mapstructure:"log_level"`

	Redis    RedisConfig    `mapstructure:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Session  SessionConfig  `mapstructure:"session"`
	Backtest BacktestConfig `mapstructure:"backtest"`

	Symbols    []string       `mapstructure:"symbols"`
	Strategies []StrategyPlan `mapstructure:"strategies"`
}

// RedisConfig configures the candle consumer and signal publisher.
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	ConsumerName  string `mapstructure:"consumer_name"`

	CircuitMaxFailures int           `mapstructure:"circuit_max_failures"`
	CircuitReset       time.Duration `mapstructure:"circuit_reset"`
	BufferSize         int           `mapstructure:"buffer_size"`
	PELInterval        time.Duration `mapstructure:"pel_interval"`
	PELMinIdle         time.Duration `mapstructure:"pel_min_idle"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig enables alert backends; empty values disable them.
type NotifyConfig struct {
	WebhookURL       string `mapstructure:"webhook_url"`
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
}

// SessionConfig sizes the decision loop.
type SessionConfig struct {
	HistorySize      int `mapstructure:"history_size"`
	SignalBufferSize int `mapstructure:"signal_buffer_size"`
}

// BacktestConfig configures replay speed for cmd/backtest.
type BacktestConfig struct {
	Speed  float64 `mapstructure:"speed"`
	FromTS int64   `mapstructure:"from_ts"`
}

// StrategyPlan is one configured strategy: a unique name, a registry type
// and its parameters.
type StrategyPlan struct {
	Name   string          `mapstructure:"name"`
	Type   string          `mapstructure:"type"`
	Params strategy.Params `mapstructure:"params"`
}

// DefaultPlans are evaluated when no strategies are configured.
var DefaultPlans = []StrategyPlan{
	{Name: "rsi_14", Type: string(strategy.TypeRSI)},
	{Name: "macd_12_26_9", Type: string(strategy.TypeMACD)},
	{Name: "bollinger_20_2", Type: string(strategy.TypeBollingerBands)},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service", "strategyd")
	v.SetDefault("log_level", "info")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.consumer_group", "strategyd")
	v.SetDefault("redis.consumer_name", "worker-1")
	v.SetDefault("redis.circuit_max_failures", 5)
	v.SetDefault("redis.circuit_reset", 10*time.Second)
	v.SetDefault("redis.buffer_size", 10000)
	v.SetDefault("redis.pel_interval", 30*time.Second)
	v.SetDefault("redis.pel_min_idle", time.Minute)

	v.SetDefault("sqlite.path", "data/candles.db")
	v.SetDefault("metrics.addr", ":9095")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.telegram_bot_token", "")
	v.SetDefault("notify.telegram_chat_id", "")

	v.SetDefault("session.history_size", 1000)
	v.SetDefault("session.signal_buffer_size", 1000)

	v.SetDefault("backtest.speed", 0)
	v.SetDefault("backtest.from_ts", 0)

	v.SetDefault("symbols", []string{})
}

// NewViper returns a viper instance with defaults and environment binding.
// Nested keys map to env names with "." replaced by "_", e.g. redis.addr is
// B2S_REDIS_ADDR.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env (if present), the environment and the config file at path
// (skipped when empty).
func Load(path string) (*Config, error) {
	return LoadFrom(NewViper(), path)
}

// LoadFrom is Load on a caller-prepared viper instance, e.g. one with bound
// command-line flags.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	_ = godotenv.Load()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Session.HistorySize < 1 {
		return errors.Errorf("session.history_size must be positive, got %d", c.Session.HistorySize)
	}
	if c.Session.SignalBufferSize < 1 {
		return errors.Errorf("session.signal_buffer_size must be positive, got %d", c.Session.SignalBufferSize)
	}
	if c.Backtest.Speed < 0 {
		return errors.Errorf("backtest.speed must not be negative, got %v", c.Backtest.Speed)
	}
	for i, p := range c.Strategies {
		if p.Type == "" {
			return errors.Errorf("strategies[%d]: missing type", i)
		}
	}
	for _, p := range c.Plans() {
		t, err := strategy.ParseType(string(p.Type))
		if err != nil {
			continue // custom types are checked by the session registry
		}
		if n := strategy.MinHistory(t, p.Params); c.Session.HistorySize < n {
			return errors.Errorf("session.history_size %d is below the %d candles plan %s needs",
				c.Session.HistorySize, n, lo.Ternary(p.Name != "", p.Name, string(t)))
		}
	}
	return nil
}

// Plans converts the configured strategies into session plans, falling back
// to DefaultPlans.
func (c *Config) Plans() []session.Plan {
	src := c.Strategies
	if len(src) == 0 {
		src = DefaultPlans
	}
	plans := make([]session.Plan, len(src))
	for i, p := range src {
		plans[i] = session.Plan{Name: p.Name, Type: strategy.Type(p.Type), Params: p.Params}
	}
	return plans
}
