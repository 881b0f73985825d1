package redis

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// errNoData marks a stream entry without a string "data" field.
var errNoData = errors.New("stream entry has no data field")

func decodeCandle(values map[string]interface{}) (model.Candle, error) {
	var c model.Candle
	data, ok := values["data"].(string)
	if !ok {
		return c, errNoData
	}
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return c, errors.Wrap(err, "unmarshal candle")
	}
	if c.Symbol == "" {
		return c, errors.New("candle without symbol")
	}
	return c, nil
}
