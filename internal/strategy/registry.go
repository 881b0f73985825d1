package strategy

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Constructor builds a strategy instance.
type Constructor func(log *zap.Logger) TradeStrategy

// Registry maps strategy types to lazily built, shared instances.
//
// The first Get for a type constructs and caches the instance; later calls
// return the same one, so callers share its lines and crossing state. A
// registry is owned by a session and is never process-global.
type Registry struct {
	mu        sync.Mutex
	log       *zap.Logger
	ctors     map[Type]Constructor
	instances map[Type]TradeStrategy
}

// NewRegistry creates a registry holding the built-in strategies.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		log:       log,
		ctors:     make(map[Type]Constructor),
		instances: make(map[Type]TradeStrategy),
	}
	r.Register(TypeSMA, func(l *zap.Logger) TradeStrategy { return NewSMA(l) })
	r.Register(TypeEMA, func(l *zap.Logger) TradeStrategy { return NewEMA(l) })
	r.Register(TypeBollingerBands, func(l *zap.Logger) TradeStrategy { return NewBollingerBands(l) })
	r.Register(TypeBollingerBandsAdvanced, func(l *zap.Logger) TradeStrategy { return NewBollingerBandsAdvanced(l) })
	r.Register(TypeRSI, func(l *zap.Logger) TradeStrategy { return NewRSI(l) })
	r.Register(TypeMACD, func(l *zap.Logger) TradeStrategy { return NewMACD(l) })
	r.Register(TypeStochasticOscillator, func(l *zap.Logger) TradeStrategy { return NewStochasticOscillator(l) })
	r.Register(TypeMovingAverageCrossing, func(l *zap.Logger) TradeStrategy { return NewMovingAverageCrossing(l) })
	return r
}

// Register adds or replaces the constructor for t. A cached instance of t is
// dropped so the next Get builds from the new constructor.
func (r *Registry) Register(t Type, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[t] = c
	delete(r.instances, t)
}

// Types returns the registered types in sorted order.
func (r *Registry) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := lo.Keys(r.ctors)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Get returns the shared instance for t, building it on first request.
func (r *Registry) Get(t Type) (TradeStrategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.instances[t]; ok {
		return s, nil
	}
	ctor, ok := r.ctors[t]
	if !ok {
		err := errors.Wrapf(ErrUndefinedType, "strategy type %q is not registered", t)
		r.log.Warn("unknown strategy requested", zap.String("type", string(t)))
		return nil, err
	}
	s := ctor(r.log)
	r.instances[t] = s
	r.log.Debug("strategy instance created", zap.String("type", string(t)))
	return s, nil
}

func get[T TradeStrategy](r *Registry, t Type) (T, error) {
	var zero T
	s, err := r.Get(t)
	if err != nil {
		return zero, err
	}
	typed, ok := s.(T)
	if !ok {
		return zero, errors.Wrapf(ErrUndefinedType, "strategy %q is a %T", t, s)
	}
	return typed, nil
}

func (r *Registry) SMA() (*SMA, error) { return get[*SMA](r, TypeSMA) }
func (r *Registry) EMA() (*EMA, error) { return get[*EMA](r, TypeEMA) }
func (r *Registry) RSI() (*RSI, error) { return get[*RSI](r, TypeRSI) }
func (r *Registry) MACD() (*MACD, error) { return get[*MACD](r, TypeMACD) }

func (r *Registry) BollingerBands() (*BollingerBands, error) {
	return get[*BollingerBands](r, TypeBollingerBands)
}

func (r *Registry) BollingerBandsAdvanced() (*BollingerBandsAdvanced, error) {
	return get[*BollingerBandsAdvanced](r, TypeBollingerBandsAdvanced)
}

func (r *Registry) StochasticOscillator() (*StochasticOscillator, error) {
	return get[*StochasticOscillator](r, TypeStochasticOscillator)
}

func (r *Registry) MovingAverageCrossing() (*MovingAverageCrossing, error) {
	return get[*MovingAverageCrossing](r, TypeMovingAverageCrossing)
}
