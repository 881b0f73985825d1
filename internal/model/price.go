package model

import (
	"strings"

	"github.com/pkg/errors"
)

// PriceField selects which candle value a calculation consumes.
type PriceField string

const (
	PriceOpen    PriceField = "open"
	PriceHigh    PriceField = "high"
	PriceLow     PriceField = "low"
	PriceClose   PriceField = "close"
	PriceTypical PriceField = "typical" // (high+low+close)/3
)

// ErrUnknownPriceField is returned by ParsePriceField.
var ErrUnknownPriceField = errors.New("unknown price field")

// ParsePriceField maps a name to a PriceField. Empty input means close.
func ParsePriceField(s string) (PriceField, error) {
	switch PriceField(strings.ToLower(strings.TrimSpace(s))) {
	case "", PriceClose:
		return PriceClose, nil
	case PriceOpen:
		return PriceOpen, nil
	case PriceHigh:
		return PriceHigh, nil
	case PriceLow:
		return PriceLow, nil
	case PriceTypical:
		return PriceTypical, nil
	}
	return "", errors.Wrapf(ErrUnknownPriceField, "%q", s)
}
