package strategy

import (
	"github.com/pkg/errors"
)

// ErrStrategy reports invalid input shape: no candles, fewer candles than the
// configured periods need, or parameters that cannot produce a line.
var ErrStrategy = errors.New("strategy error")

// Sub-kinds of ErrStrategy. errors.Is matches both the sub-kind and ErrStrategy.
var (
	ErrBadPeriodsForLines  error = &kindError{msg: "bad periods for lines"}
	ErrNotCorrectLinesSize error = &kindError{msg: "not correct lines size"}
	ErrSmallAnalyzedPeriod error = &kindError{msg: "small analyzed period"}
)

// ErrUndefinedType reports an unregistered strategy type, stochastic type,
// moving-average kind or price field.
var ErrUndefinedType = errors.New("undefined type")

type kindError struct {
	msg string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return ErrStrategy }

// Kind returns a short label for err, used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadPeriodsForLines):
		return "bad_periods_for_lines"
	case errors.Is(err, ErrNotCorrectLinesSize):
		return "not_correct_lines_size"
	case errors.Is(err, ErrSmallAnalyzedPeriod):
		return "small_analyzed_period"
	case errors.Is(err, ErrStrategy):
		return "strategy"
	case errors.Is(err, ErrUndefinedType):
		return "undefined_type"
	default:
		return "internal"
	}
}
