package strategy

import (
	"strings"

	"github.com/pkg/errors"
)

// Type identifies a strategy implementation in the Registry.
type Type string

const (
	TypeSMA                    Type = "sma"
	TypeEMA                    Type = "ema"
	TypeBollingerBands         Type = "bollinger_bands"
	TypeBollingerBandsAdvanced Type = "bollinger_bands_advanced"
	TypeRSI                    Type = "rsi"
	TypeMACD                   Type = "macd"
	TypeStochasticOscillator   Type = "stochastic_oscillator"
	TypeMovingAverageCrossing  Type = "moving_average_crossing"
)

var typeAliases = map[string]Type{
	"bollinger":          TypeBollingerBands,
	"bollinger_advanced": TypeBollingerBandsAdvanced,
	"stochastic":         TypeStochasticOscillator,
	"ma_crossing":        TypeMovingAverageCrossing,
	"ma_crossover":       TypeMovingAverageCrossing,
}

var builtinTypes = []Type{
	TypeSMA, TypeEMA, TypeBollingerBands, TypeBollingerBandsAdvanced,
	TypeRSI, TypeMACD, TypeStochasticOscillator, TypeMovingAverageCrossing,
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// ParseType maps a name such as "MACD", "bollinger-bands" or "stochastic" to a Type.
func ParseType(s string) (Type, error) {
	n := normalize(s)
	for _, t := range builtinTypes {
		if string(t) == n {
			return t, nil
		}
	}
	if t, ok := typeAliases[n]; ok {
		return t, nil
	}
	return "", errors.Wrapf(ErrUndefinedType, "strategy type %q", s)
}

// StochasticType selects how the stochastic main and signal lines are smoothed.
type StochasticType string

const (
	StochasticQuick StochasticType = "quick"
	StochasticSlow  StochasticType = "slow"
	StochasticFull  StochasticType = "full"
)

// ParseStochasticType maps a name to a StochasticType. Empty input means full.
func ParseStochasticType(s string) (StochasticType, error) {
	switch StochasticType(normalize(s)) {
	case StochasticQuick:
		return StochasticQuick, nil
	case StochasticSlow:
		return StochasticSlow, nil
	case "", StochasticFull:
		return StochasticFull, nil
	}
	return "", errors.Wrapf(ErrUndefinedType, "stochastic type %q", s)
}

// MovingAverageKind selects the averaging used by MovingAverageCrossing.
type MovingAverageKind string

const (
	MovingAverageSMA MovingAverageKind = "sma"
	MovingAverageEMA MovingAverageKind = "ema"
)

// ParseMovingAverageKind maps a name to a MovingAverageKind. Empty input means sma.
func ParseMovingAverageKind(s string) (MovingAverageKind, error) {
	switch MovingAverageKind(normalize(s)) {
	case "", MovingAverageSMA:
		return MovingAverageSMA, nil
	case MovingAverageEMA:
		return MovingAverageEMA, nil
	}
	return "", errors.Wrapf(ErrUndefinedType, "moving average %q", s)
}
