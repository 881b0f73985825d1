// Package bus spreads signals from the decision loop to several sinks.
package bus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// FanOut broadcasts published signals to N output channels.
// If an output channel is full, the signal is dropped for that consumer to
// prevent a slow sink from blocking the decision loop.
type FanOut struct {
	mu      sync.RWMutex
	outputs []output
	bufSize int
	log     *zap.Logger

	// OnDrop is called when a signal is dropped for a subscriber.
	OnDrop func(subscriber string)
}

type output struct {
	name string
	ch   chan model.Signal
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int, log *zap.Logger) *FanOut {
	if log == nil {
		log = zap.NewNop()
	}
	return &FanOut{
		bufSize: outputBufferSize,
		log:     log,
	}
}

// Subscribe creates and returns a new output channel for the named sink.
func (f *FanOut) Subscribe(name string) <-chan model.Signal {
	ch := make(chan model.Signal, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, output{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Publish hands sig to every subscriber without blocking.
func (f *FanOut) Publish(sig model.Signal) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, out := range f.outputs {
		select {
		case out.ch <- sig:
		default:
			if f.OnDrop != nil {
				f.OnDrop(out.name)
			} else {
				f.log.Warn("output channel full, dropping signal",
					zap.String("sink", out.name),
					zap.String("stream", sig.StreamKey()))
			}
		}
	}
}

// Close closes every subscriber channel. Publish must not be called afterwards.
func (f *FanOut) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, out := range f.outputs {
		close(out.ch)
	}
	f.outputs = nil
}

// ChannelStat reports (length, capacity) of one subscriber channel.
// Used for reporting channel saturation percentage.
type ChannelStat struct {
	Name string
	Len  int
	Cap  int
}

func (f *FanOut) ChannelStats() []ChannelStat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := make([]ChannelStat, len(f.outputs))
	for i, out := range f.outputs {
		stats[i] = ChannelStat{Name: out.name, Len: len(out.ch), Cap: cap(out.ch)}
	}
	return stats
}
