package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandle_Price(t *testing.T) {
	c := Candle{Open: 10, High: 14, Low: 8, Close: 12}

	assert.Equal(t, 10.0, c.Price(PriceOpen))
	assert.Equal(t, 14.0, c.Price(PriceHigh))
	assert.Equal(t, 8.0, c.Price(PriceLow))
	assert.Equal(t, 12.0, c.Price(PriceClose))
	assert.InDelta(t, 34.0/3, c.Price(PriceTypical), 1e-12)
	// unknown fields fall back to close
	assert.Equal(t, 12.0, c.Price(PriceField("vwap")))
}

func TestPrices_PreservesOrder(t *testing.T) {
	candles := []Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	assert.Equal(t, []float64{1, 2, 3}, Prices(candles, PriceClose))
	assert.Empty(t, Prices(nil, PriceClose))
}

func TestParsePriceField(t *testing.T) {
	tests := []struct {
		in   string
		want PriceField
	}{
		{"", PriceClose},
		{"close", PriceClose},
		{" HIGH ", PriceHigh},
		{"Low", PriceLow},
		{"open", PriceOpen},
		{"typical", PriceTypical},
	}
	for _, tt := range tests {
		got, err := ParsePriceField(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePriceField("median")
	assert.ErrorIs(t, err, ErrUnknownPriceField)
	assert.Equal(t, ErrUnknownPriceField, errors.Cause(err))
	assert.EqualError(t, err, `"median": unknown price field`)
}

func TestSignal_Keys(t *testing.T) {
	s := Signal{Strategy: "macd_12_26", Symbol: "BTCUSDT", Side: SideSell, TS: time.Unix(1700000000, 0).UTC()}

	assert.Equal(t, "signal:macd_12_26:BTCUSDT", s.StreamKey())
	assert.Equal(t, "signal:latest:macd_12_26:BTCUSDT", s.LatestKey())
	assert.Equal(t, "pub:signal:BTCUSDT", s.PubSubChannel())

	var decoded Signal
	require.NoError(t, json.Unmarshal(s.JSON(), &decoded))
	assert.Equal(t, s, decoded)
}

func TestCandle_StreamKey(t *testing.T) {
	c := Candle{Symbol: "ETHUSDT"}
	assert.Equal(t, "candle:ETHUSDT", c.StreamKey())
}
