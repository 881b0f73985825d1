package redis

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// SignalPublisher publishes one signal. *Writer implements it.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig model.Signal) error
}

// BufferedWriter wraps a SignalPublisher with a circuit breaker.
// While the circuit is open, signals are buffered locally and flushed
// once the circuit closes again.
type BufferedWriter struct {
	pub SignalPublisher
	cb  *CircuitBreaker
	ctx context.Context
	log *zap.Logger

	mu     sync.Mutex
	buffer []model.Signal
	maxBuf int // oldest signals are dropped beyond this

	OnBuffer func()          // called when a signal is buffered
	OnDrop   func()          // called when a buffered signal is evicted
	OnFlush  func(count int) // called after a flush
}

// NewBufferedWriter creates a BufferedWriter publishing through pub.
func NewBufferedWriter(ctx context.Context, pub SignalPublisher, cb *CircuitBreaker, maxBufferSize int, log *zap.Logger) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	if log == nil {
		log = zap.NewNop()
	}
	bw := &BufferedWriter{
		pub:    pub,
		cb:     cb,
		ctx:    ctx,
		log:    log,
		buffer: make([]model.Signal, 0, 256),
		maxBuf: maxBufferSize,
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bw.Flush()
		}
	}

	return bw
}

// WriteSignal publishes sig through the circuit breaker. When the circuit
// is open the signal is buffered and nil is returned.
func (bw *BufferedWriter) WriteSignal(sig model.Signal) error {
	err := bw.cb.Execute(func() error {
		return bw.pub.PublishSignal(bw.ctx, sig)
	})
	if err == ErrCircuitOpen {
		bw.bufferSignal(sig)
		return nil
	}
	if err != nil {
		bw.log.Warn("signal publish failed",
			zap.String("strategy", sig.Strategy),
			zap.String("symbol", sig.Symbol),
			zap.Error(err))
	}
	return err
}

// Run publishes every signal from in until the channel closes or ctx is
// cancelled, then flushes whatever is still buffered.
func (bw *BufferedWriter) Run(ctx context.Context, in <-chan model.Signal) {
	defer bw.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-in:
			if !ok {
				return
			}
			_ = bw.WriteSignal(sig)
		}
	}
}

func (bw *BufferedWriter) bufferSignal(sig model.Signal) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		bw.buffer = bw.buffer[1:]
		if bw.OnDrop != nil {
			bw.OnDrop()
		}
	}
	bw.buffer = append(bw.buffer, sig)

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// Flush publishes all buffered signals directly. Signals that still fail
// are put back at the front of the buffer.
func (bw *BufferedWriter) Flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	toFlush := bw.buffer
	bw.buffer = make([]model.Signal, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for i, sig := range toFlush {
		if err := bw.pub.PublishSignal(bw.ctx, sig); err != nil {
			bw.log.Warn("flush interrupted", zap.Int("remaining", len(toFlush)-i), zap.Error(err))
			bw.mu.Lock()
			bw.buffer = append(append([]model.Signal{}, toFlush[i:]...), bw.buffer...)
			bw.mu.Unlock()
			break
		}
		flushed++
	}

	bw.log.Info("flushed buffered signals", zap.Int("count", flushed))
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered signals.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
