// Package sqlite stores candles for backtests and journals emitted signals.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/b2s.db"
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db  *sql.DB
	log *zap.Logger

	// OnCommit, when set, receives the duration of every journal commit.
	OnCommit func(time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig, log *zap.Logger) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open")
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite schema")
	}

	log.Info("sqlite database opened", zap.String("path", cfg.DBPath))
	return &Writer{db: db, log: log}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT    NOT NULL,
			type     TEXT    NOT NULL,
			symbol   TEXT    NOT NULL,
			side     TEXT    NOT NULL,
			price    REAL    NOT NULL,
			point    REAL    NOT NULL,
			ts       INTEGER NOT NULL,
			reason   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals (symbol, ts);
	`)
	return err
}

// InsertCandles inserts candles in a single transaction. Existing rows with
// the same symbol and timestamp are replaced.
func (w *Writer) InsertCandles(ctx context.Context, candles []model.Candle) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite begin")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "sqlite prepare candles")
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "sqlite insert candle %s@%d", c.Symbol, c.TS.Unix())
		}
	}

	return errors.Wrap(tx.Commit(), "sqlite commit candles")
}

// WriteSignal appends one signal to the journal.
func (w *Writer) WriteSignal(ctx context.Context, sig model.Signal) error {
	return w.insertSignals(ctx, []model.Signal{sig})
}

func (w *Writer) insertSignals(ctx context.Context, signals []model.Signal) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite begin")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (strategy, type, symbol, side, price, point, ts, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "sqlite prepare signals")
	}
	defer stmt.Close()

	for _, s := range signals {
		if _, err := stmt.ExecContext(ctx, s.Strategy, s.Type, s.Symbol, string(s.Side), s.Price, s.Point, s.TS.Unix(), s.Reason); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "sqlite insert signal %s", s.StreamKey())
		}
	}

	return errors.Wrap(tx.Commit(), "sqlite commit signals")
}

// Run reads signals from signalCh and journals them in batched transactions.
// Flushes every batchSize signals OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or signalCh is closed.
func (w *Writer) Run(ctx context.Context, signalCh <-chan model.Signal) {
	batch := make([]model.Signal, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		// a cancelled ctx must not lose the final batch
		if err := w.insertSignals(context.Background(), batch); err != nil {
			w.log.Error("signal batch insert failed", zap.Int("signals", len(batch)), zap.Error(err))
		} else {
			if w.OnCommit != nil {
				w.OnCommit(time.Since(start))
			}
			w.log.Debug("signals committed", zap.Int("signals", len(batch)), zap.Duration("took", time.Since(start)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case sig, ok := <-signalCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, sig)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// GetLastTimestamp returns the last stored candle timestamp for a symbol.
// Returns 0 if no candles exist.
func (w *Writer) GetLastTimestamp(ctx context.Context, symbol string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM candles WHERE symbol = ?`, symbol,
	).Scan(&ts)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite last timestamp")
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
