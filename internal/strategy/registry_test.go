package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_Memoizes(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	for _, typ := range builtinTypes {
		first, err := r.Get(typ)
		require.NoError(t, err, typ)
		second, err := r.Get(typ)
		require.NoError(t, err, typ)
		assert.Same(t, first, second, typ)
		assert.Equal(t, typ, first.Type())
	}
}

func TestRegistry_TypedAccessors(t *testing.T) {
	r := NewRegistry(nil)

	macd, err := r.MACD()
	require.NoError(t, err)
	viaGet, err := r.Get(TypeMACD)
	require.NoError(t, err)
	assert.Same(t, macd, viaGet)

	_, err = r.SMA()
	assert.NoError(t, err)
	_, err = r.EMA()
	assert.NoError(t, err)
	_, err = r.RSI()
	assert.NoError(t, err)
	_, err = r.BollingerBands()
	assert.NoError(t, err)
	_, err = r.StochasticOscillator()
	assert.NoError(t, err)
	_, err = r.MovingAverageCrossing()
	assert.NoError(t, err)

	adv, err := r.BollingerBandsAdvanced()
	require.NoError(t, err)
	require.NoError(t, adv.SetPercentageForTopLine(50))
	again, err := r.BollingerBandsAdvanced()
	require.NoError(t, err)
	assert.Same(t, adv, again, "setter state lives on the shared instance")
}

func TestRegistry_UnregisteredType(t *testing.T) {
	r := NewRegistry(nil)
	s, err := r.Get(Type("ichimoku"))
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUndefinedType)
}

func TestRegistry_RegisterReplacesInstance(t *testing.T) {
	r := NewRegistry(nil)
	old, err := r.Get(TypeSMA)
	require.NoError(t, err)

	r.Register(TypeSMA, func(l *zap.Logger) TradeStrategy { return NewEMA(l) })
	replaced, err := r.Get(TypeSMA)
	require.NoError(t, err)
	assert.NotSame(t, old, replaced)
	assert.Equal(t, TypeEMA, replaced.Type())

	// the typed accessor refuses a mismatched implementation
	_, err = r.SMA()
	assert.ErrorIs(t, err, ErrUndefinedType)
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(Type("custom"), func(l *zap.Logger) TradeStrategy { return NewSMA(l) })

	assert.Equal(t, []Type{
		TypeBollingerBands,
		TypeBollingerBandsAdvanced,
		Type("custom"),
		TypeEMA,
		TypeMACD,
		TypeMovingAverageCrossing,
		TypeRSI,
		TypeSMA,
		TypeStochasticOscillator,
	}, r.Types())
}

func TestRegistry_SeparateRegistriesDoNotShare(t *testing.T) {
	a, _ := NewRegistry(nil).Get(TypeRSI)
	b, _ := NewRegistry(nil).Get(TypeRSI)
	assert.NotSame(t, a, b)
}
