// Package notification delivers trading alerts to external channels.
package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// Notifier is implemented by every notification backend.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a zap logger.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.log.Info(alert.Title,
		zap.String("level", string(alert.Level)),
		zap.String("message", alert.Message))
	return nil
}

// AlertFromSignal renders a signal as an INFO alert carrying the signal.
func AlertFromSignal(sig model.Signal) Alert {
	s := sig
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s %s", sig.Side, sig.Symbol, sig.Strategy),
		Message: fmt.Sprintf("%s at %.4f (%s), %s",
			sig.Side, sig.Price, sig.TS.UTC().Format(time.RFC3339), sig.Reason),
		Signal: &s,
	}
}

// Dispatcher turns signals into alerts and sends them to every notifier.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	log       *zap.Logger
}

// NewDispatcher creates a Dispatcher. Each send is bounded by timeout
// (10s when zero).
func NewDispatcher(log *zap.Logger, timeout time.Duration, notifiers ...Notifier) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{notifiers: notifiers, timeout: timeout, log: log}
}

// Notify sends the alert for sig to all notifiers and combines their errors.
func (d *Dispatcher) Notify(ctx context.Context, sig model.Signal) error {
	alert := AlertFromSignal(sig)
	var errs error
	for _, n := range d.notifiers {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		errs = multierr.Append(errs, n.Send(sctx, alert))
		cancel()
	}
	return errs
}

// Run notifies every signal from in until the channel closes or ctx is
// cancelled. Failed deliveries are logged and dropped.
func (d *Dispatcher) Run(ctx context.Context, in <-chan model.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-in:
			if !ok {
				return
			}
			if err := d.Notify(ctx, sig); err != nil {
				d.log.Warn("alert delivery failed",
					zap.String("strategy", sig.Strategy),
					zap.String("symbol", sig.Symbol),
					zap.Error(err))
			}
		}
	}
}
