// Package session runs the trading decision loop: it keeps a bounded candle
// history per symbol, evaluates every configured strategy plan on each new
// candle and hands the resulting signals to its sinks.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/logger"
	"github.com/Rapprise/b2s-trader-sub002/internal/metrics"
	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/strategy"
)

const defaultHistorySize = 500

// Plan is a named strategy type with its parameters.
type Plan struct {
	Name   string          `mapstructure:"name"`
	Type   strategy.Type   `mapstructure:"type"`
	Params strategy.Params `mapstructure:"params"`
}

// SignalSink receives emitted signals. Publish must not block.
// *bus.FanOut implements it.
type SignalSink interface {
	Publish(sig model.Signal)
}

// SinkFunc adapts a function to SignalSink.
type SinkFunc func(sig model.Signal)

func (f SinkFunc) Publish(sig model.Signal) { f(sig) }

// Option configures a Session.
type Option func(*Session)

// WithHistorySize bounds the candles kept per symbol.
func WithHistorySize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithSink adds a signal sink.
func WithSink(sink SignalSink) Option {
	return func(s *Session) { s.sinks = append(s.sinks, sink) }
}

// WithMetrics records evaluations, signals and errors on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithHealth reports candle arrival times to h.
func WithHealth(h *metrics.HealthStatus) Option {
	return func(s *Session) { s.health = h }
}

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

type pointKey struct {
	symbol string
	plan   string
}

type crossingPoints struct {
	buy  *float64
	sell *float64
}

// Session owns a strategy registry and evaluates plans one at a time.
type Session struct {
	mu          sync.Mutex
	registry    *strategy.Registry
	plans       []Plan
	historySize int
	history     map[string][]model.Candle
	points      map[pointKey]crossingPoints

	sinks   []SignalSink
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	log     *zap.Logger
}

// New validates plans against registry and creates a Session. A plan without
// a name is named after its type. Plan names must be unique. The history size
// is raised to strategy.MinHistory of the most demanding plan.
func New(registry *strategy.Registry, plans []Plan, opts ...Option) (*Session, error) {
	if registry == nil {
		return nil, errors.New("session: nil registry")
	}
	if len(plans) == 0 {
		return nil, errors.New("session: no strategy plans")
	}

	s := &Session{
		registry:    registry,
		historySize: defaultHistorySize,
		history:     make(map[string][]model.Candle),
		points:      make(map[pointKey]crossingPoints),
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	seen := make(map[string]bool, len(plans))
	minHistory := 0
	for _, p := range plans {
		// Custom registered types are not known to ParseType.
		t, err := strategy.ParseType(string(p.Type))
		if err != nil {
			t = p.Type
		}
		if _, err := registry.Get(t); err != nil {
			return nil, errors.Wrapf(err, "plan %q", p.Name)
		}
		p.Type = t
		if p.Name == "" {
			p.Name = string(t)
		}
		if seen[p.Name] {
			return nil, errors.Errorf("session: duplicate plan name %q", p.Name)
		}
		seen[p.Name] = true
		s.plans = append(s.plans, p)
		if n := strategy.MinHistory(p.Type, p.Params); n > minHistory {
			minHistory = n
		}
	}
	if s.historySize < minHistory {
		s.log.Warn("history size raised to fit the slowest plan",
			zap.Int("configured", s.historySize), zap.Int("history", minHistory))
		s.historySize = minHistory
	}

	if s.health != nil {
		s.health.SetStrategies(s.PlanNames())
	}
	return s, nil
}

// Plans returns the validated plans.
func (s *Session) Plans() []Plan {
	return append([]Plan(nil), s.plans...)
}

// HistorySize returns the number of candles kept per symbol.
func (s *Session) HistorySize() int { return s.historySize }

// PlanNames returns the plan names in evaluation order.
func (s *Session) PlanNames() []string {
	names := make([]string, len(s.plans))
	for i, p := range s.plans {
		names[i] = p.Name
	}
	return names
}

// Evaluate runs every plan on candles for symbol and returns the emitted
// signals. The crossing points recorded for (symbol, plan) are passed into
// each call and replaced when the strategy fires. A failing plan does not
// stop the others; all failures are combined into the returned error.
func (s *Session) Evaluate(ctx context.Context, symbol string, candles []model.Candle) ([]model.Signal, error) {
	s.mu.Lock()
	signals, err := s.evaluate(ctx, symbol, candles)
	s.mu.Unlock()

	for _, sig := range signals {
		for _, sink := range s.sinks {
			sink.Publish(sig)
		}
	}
	return signals, err
}

func (s *Session) evaluate(ctx context.Context, symbol string, candles []model.Candle) ([]model.Signal, error) {
	var (
		signals []model.Signal
		errs    error
	)
	fields := logger.Fields(ctx)

	for _, plan := range s.plans {
		ts, err := s.registry.Get(plan.Type)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "plan %s", plan.Name))
			continue
		}

		key := pointKey{symbol: symbol, plan: plan.Name}
		pts := s.points[key]
		p := plan.Params
		p.LastBuyPoint = pts.buy
		p.LastSellPoint = pts.sell

		start := time.Now()
		err = ts.CreateLines(candles, p)
		if s.metrics != nil {
			s.metrics.Evaluations.WithLabelValues(plan.Name).Inc()
			s.metrics.EvaluationDur.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if s.metrics != nil {
				s.metrics.ErrorsTotal.WithLabelValues(plan.Name, strategy.Kind(err)).Inc()
			}
			log := s.log.With(fields...).With(zap.String("plan", plan.Name), zap.String("symbol", symbol))
			if errors.Is(err, strategy.ErrStrategy) {
				log.Debug("plan skipped", zap.Error(err))
			} else {
				log.Warn("plan failed", zap.Error(err))
			}
			errs = multierr.Append(errs, errors.Wrapf(err, "plan %s", plan.Name))
			continue
		}

		last := candles[len(candles)-1]
		if ts.IsNeedToBuy() {
			pts.buy = strategy.Point(ts.LastBuyCrossingPoint())
			signals = append(signals, s.signal(plan, last, model.SideBuy, *pts.buy))
		}
		if ts.IsNeedToSell() {
			pts.sell = strategy.Point(ts.LastSellCrossingPoint())
			signals = append(signals, s.signal(plan, last, model.SideSell, *pts.sell))
		}
		s.points[key] = pts
	}

	for _, sig := range signals {
		if s.metrics != nil {
			s.metrics.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Side)).Inc()
		}
		s.log.Info("signal",
			append(fields,
				zap.String("plan", sig.Strategy),
				zap.String("symbol", sig.Symbol),
				zap.String("side", string(sig.Side)),
				zap.Float64("price", sig.Price),
				zap.Float64("point", sig.Point))...)
	}
	return signals, errs
}

func (s *Session) signal(plan Plan, last model.Candle, side model.Side, point float64) model.Signal {
	return model.Signal{
		Strategy: plan.Name,
		Type:     string(plan.Type),
		Symbol:   last.Symbol,
		Side:     side,
		Price:    last.Close,
		Point:    point,
		TS:       last.TS,
		Reason:   fmt.Sprintf("%s %s crossing at %.4f", plan.Type, side, point),
	}
}

// OnCandle appends c to its symbol's history and evaluates every plan on
// the updated history. Candles not newer than the last stored one replace
// nothing and are ignored.
func (s *Session) OnCandle(ctx context.Context, c model.Candle) ([]model.Signal, error) {
	s.mu.Lock()
	hist := s.history[c.Symbol]
	if n := len(hist); n > 0 && !c.TS.After(hist[n-1].TS) {
		s.mu.Unlock()
		s.log.Debug("stale candle ignored", zap.String("symbol", c.Symbol), zap.Time("ts", c.TS))
		return nil, nil
	}
	hist = append(hist, c)
	if len(hist) > s.historySize {
		hist = append(hist[:0:0], hist[len(hist)-s.historySize:]...)
	}
	s.history[c.Symbol] = hist
	candles := append([]model.Candle(nil), hist...)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.CandlesTotal.Inc()
	}
	if s.health != nil {
		s.health.SetLastCandleTime(time.Now())
	}

	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(c.Symbol, c.TS))
	return s.Evaluate(ctx, c.Symbol, candles)
}

// Run is the decision loop. It evaluates every candle from in until the
// channel closes (nil) or ctx is cancelled (ctx.Err()).
func (s *Session) Run(ctx context.Context, in <-chan model.Candle) error {
	s.log.Info("session started", zap.Strings("plans", s.PlanNames()), zap.Int("history", s.historySize))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-in:
			if !ok {
				s.log.Info("candle feed closed")
				return nil
			}
			_, _ = s.OnCandle(ctx, c)
		}
	}
}

// History returns a copy of the candles kept for symbol.
func (s *Session) History(symbol string) []model.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Candle(nil), s.history[symbol]...)
}

// CrossingPoints returns the points recorded for (symbol, plan); nil when
// the plan has not fired for that side yet.
func (s *Session) CrossingPoints(symbol, plan string) (buy, sell *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pts := s.points[pointKey{symbol: symbol, plan: plan}]
	return pts.buy, pts.sell
}

// Reset forgets the history and crossing points of every symbol.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]model.Candle)
	s.points = make(map[pointKey]crossingPoints)
}
