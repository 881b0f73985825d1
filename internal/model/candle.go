package model

import (
	"encoding/json"
	"time"
)

// Candle is one OHLCV sample for a fixed interval of a single symbol.
// Strategies treat candles as read-only.
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Price returns the candle value selected by field.
func (c *Candle) Price(field PriceField) float64 {
	switch field {
	case PriceOpen:
		return c.Open
	case PriceHigh:
		return c.High
	case PriceLow:
		return c.Low
	case PriceTypical:
		return (c.High + c.Low + c.Close) / 3
	default:
		return c.Close
	}
}

// StreamKey returns the Redis stream key: "candle:{symbol}".
func (c *Candle) StreamKey() string {
	return CandleStreamKey(c.Symbol)
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// CandleStreamKey returns the Redis stream key for a symbol's candles.
func CandleStreamKey(symbol string) string {
	return "candle:" + symbol
}

// Prices extracts one price field from every candle, preserving order.
func Prices(candles []Candle, field PriceField) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Price(field)
	}
	return out
}
