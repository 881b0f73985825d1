package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	sqlitestore "github.com/Rapprise/b2s-trader-sub002/internal/store/sqlite"
)

var importCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "import ts,open,high,low,close,volume rows into the candle store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd, "backtest")
		if err != nil {
			return err
		}
		defer log.Sync()

		symbol, _ := cmd.Flags().GetString("symbol")
		if symbol == "" {
			return errors.New("--symbol is required")
		}

		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open csv")
		}
		defer f.Close()

		candles, err := parseCSV(f, symbol)
		if err != nil {
			return errors.Wrapf(err, "parse %s", args[0])
		}

		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLite.Path}, log)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, cancel := signalContext()
		defer cancel()
		prev, err := w.GetLastTimestamp(ctx, symbol)
		if err != nil {
			return err
		}
		if err := w.InsertCandles(ctx, candles); err != nil {
			return err
		}

		replaced := 0
		for _, c := range candles {
			if c.TS.Unix() <= prev {
				replaced++
			}
		}
		log.Info("candles imported",
			zap.String("symbol", symbol),
			zap.Int("count", len(candles)),
			zap.Int("replaced", replaced),
			zap.String("db", cfg.SQLite.Path))
		return nil
	},
}

func init() {
	importCmd.Flags().String("symbol", "", "symbol the rows belong to")
}

var csvHeader = []string{"ts", "open", "high", "low", "close", "volume"}

// parseCSV reads ts,open,high,low,close,volume rows. A header row is
// skipped. Timestamps are unix seconds or RFC3339. Rows must be strictly
// ascending by time.
func parseCSV(r io.Reader, symbol string) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var candles []model.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), csvHeader[0]) {
			continue
		}

		c, err := parseRow(rec, symbol)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if n := len(candles); n > 0 && !c.TS.After(candles[n-1].TS) {
			return nil, errors.Errorf("line %d: timestamp %s not after %s", line, c.TS, candles[n-1].TS)
		}
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, errors.New("no candles")
	}
	return candles, nil
}

func parseRow(rec []string, symbol string) (model.Candle, error) {
	c := model.Candle{Symbol: symbol}

	ts, err := parseTime(strings.TrimSpace(rec[0]))
	if err != nil {
		return c, err
	}
	c.TS = ts

	values := make([]float64, 5)
	for i, field := range rec[1:] {
		d, err := decimal.NewFromString(strings.TrimSpace(field))
		if err != nil {
			return c, errors.Wrapf(err, "%s %q", csvHeader[i+1], field)
		}
		if d.IsNegative() {
			return c, errors.Errorf("%s %q is negative", csvHeader[i+1], field)
		}
		values[i], _ = d.Float64()
	}
	c.Open, c.High, c.Low, c.Close, c.Volume = values[0], values[1], values[2], values[3], values[4]

	if c.High < c.Low {
		return c, errors.Errorf("high %v below low %v", c.High, c.Low)
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Errorf("timestamp %q is neither unix seconds nor RFC3339", s)
	}
	return t.UTC(), nil
}
