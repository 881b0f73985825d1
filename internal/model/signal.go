package model

import (
	"encoding/json"
	"time"
)

// Side is the direction of a trading decision.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Signal is a buy/sell decision emitted for one strategy plan and symbol.
type Signal struct {
	Strategy string    `json:"strategy"` // plan name, e.g. "macd_12_26"
	Type     string    `json:"type"`     // strategy type, e.g. "macd"
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Price    float64   `json:"price"` // close of the evaluated candle
	Point    float64   `json:"point"` // crossing point recorded by the strategy
	TS       time.Time `json:"ts"`    // timestamp of the evaluated candle
	Reason   string    `json:"reason"`
}

// StreamKey returns the Redis stream key: "signal:{strategy}:{symbol}".
func (s *Signal) StreamKey() string {
	return "signal:" + s.Strategy + ":" + s.Symbol
}

// LatestKey returns the Redis key holding the most recent signal.
func (s *Signal) LatestKey() string {
	return "signal:latest:" + s.Strategy + ":" + s.Symbol
}

// PubSubChannel returns the Redis PubSub channel for real-time subscribers.
func (s *Signal) PubSubChannel() string {
	return "pub:signal:" + s.Symbol
}

// JSON returns the JSON-encoded signal.
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
