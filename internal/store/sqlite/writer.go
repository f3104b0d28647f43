package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"trading-signals/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol     TEXT    NOT NULL,
			tf         TEXT    NOT NULL,
			idx        INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL    NOT NULL,
			PRIMARY KEY (symbol, tf, idx)
		);

		CREATE TABLE IF NOT EXISTS signals (
			symbol      TEXT    NOT NULL,
			tf          TEXT    NOT NULL,
			idx         INTEGER NOT NULL,
			event_idx   INTEGER NOT NULL,
			ts          INTEGER NOT NULL,
			labels      TEXT    NOT NULL,
			flags       TEXT    NOT NULL,
			frame       TEXT    NOT NULL,
			PRIMARY KEY (symbol, tf, idx)
		);
	`)
	return err
}

// WriteBars inserts bars in a single transaction. Existing rows with the same
// (symbol, tf, index) are replaced.
func (w *Writer) WriteBars(ctx context.Context, bars []model.Bar) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, tf, idx, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.Symbol, b.Timeframe, b.Index, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert bar %s #%d: %w", b.Key(), b.Index, err)
		}
	}
	return tx.Commit()
}

// WriteSignals archives events that fired at least one signal.
func (w *Writer) WriteSignals(ctx context.Context, events []model.SignalEvent) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO signals (symbol, tf, idx, event_idx, ts, labels, flags, frame)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if !ev.Emission.Any() {
			continue
		}
		flags, err := json.Marshal(ev.Flags)
		if err != nil {
			tx.Rollback()
			return err
		}
		frame, err := json.Marshal(ev.Frame)
		if err != nil {
			tx.Rollback()
			return err
		}
		_, err = stmt.ExecContext(ctx, ev.Symbol, ev.Timeframe, ev.Index, ev.EventIndex, ev.TS.Unix(),
			strings.Join(ev.Emission.Labels(), ","), string(flags), string(frame))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RunSignals reads events from ch and archives them in batched transactions.
// Flushes every batchSize events OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or ch is closed.
func (w *Writer) RunSignals(ctx context.Context, ch <-chan model.SignalEvent) {
	batch := make([]model.SignalEvent, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// the batch must land even when ctx is already cancelled
		if err := w.WriteSignals(context.Background(), batch); err != nil {
			log.Printf("[sqlite] signal batch insert error: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case ev, ok := <-ch:
			if !ok {
				flush()
				return
			}
			if !ev.Emission.Any() {
				continue
			}
			batch = append(batch, ev)
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

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
