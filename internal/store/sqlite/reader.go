package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

// Reader provides read-only access to SQLite for backtest replay and reports.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open reader")
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Info("sqlite reader opened", zap.String("path", dbPath))
	return &Reader{db: db}, nil
}

// ReadCandles reads the candles of one symbol with ts > afterTS (unix seconds).
// Results are ordered by timestamp ascending for correct replay order.
func (r *Reader) ReadCandles(ctx context.Context, symbol string, afterTS int64) ([]model.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, afterTS)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite query candles")
	}
	return scanCandles(rows)
}

func scanCandles(rows *sql.Rows) ([]model.Candle, error) {
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		var volume sql.NullFloat64
		if err := rows.Scan(&c.Symbol, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return nil, errors.Wrap(err, "sqlite scan candle")
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		c.Volume = volume.Float64
		candles = append(candles, c)
	}
	return candles, errors.Wrap(rows.Err(), "sqlite iterate candles")
}

// Symbols lists the symbols that have stored candles.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM candles ORDER BY symbol`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite query symbols")
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.Wrap(err, "sqlite scan symbol")
		}
		symbols = append(symbols, s)
	}
	return symbols, errors.Wrap(rows.Err(), "sqlite iterate symbols")
}

// ReadSignals reads the journaled signals of a symbol ordered by time.
// An empty symbol reads every signal.
func (r *Reader) ReadSignals(ctx context.Context, symbol string) ([]model.Signal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strategy, type, symbol, side, price, point, ts, reason
		FROM signals
		WHERE ? = '' OR symbol = ?
		ORDER BY ts ASC, id ASC
	`, symbol, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite query signals")
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var s model.Signal
		var side string
		var tsUnix int64
		var reason sql.NullString
		if err := rows.Scan(&s.Strategy, &s.Type, &s.Symbol, &side, &s.Price, &s.Point, &tsUnix, &reason); err != nil {
			return nil, errors.Wrap(err, "sqlite scan signal")
		}
		s.Side = model.Side(side)
		s.TS = time.Unix(tsUnix, 0).UTC()
		s.Reason = reason.String
		signals = append(signals, s)
	}
	return signals, errors.Wrap(rows.Err(), "sqlite iterate signals")
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
