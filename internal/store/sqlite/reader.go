package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"trading-signals/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored bars and signals.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadBars reads one series ordered by index, starting after afterIndex.
// Stored bars are closed periods, so they come back confirmed.
func (r *Reader) ReadBars(ctx context.Context, symbol, tf string, afterIndex int64) ([]model.Bar, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, tf, idx, ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND tf = ? AND idx > ?
		ORDER BY idx ASC
	`, symbol, tf, afterIndex)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &b.Timeframe, &b.Index, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		b.Confirmed = true
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// SeriesInfo summarises one stored series.
type SeriesInfo struct {
	Symbol    string
	Timeframe string
	Bars      int
	First     time.Time
	Last      time.Time
}

// ListSeries returns every stored (symbol, tf) series.
func (r *Reader) ListSeries(ctx context.Context) ([]SeriesInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, tf, COUNT(*), MIN(ts), MAX(ts)
		FROM bars
		GROUP BY symbol, tf
		ORDER BY symbol, tf
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list series: %w", err)
	}
	defer rows.Close()

	var out []SeriesInfo
	for rows.Next() {
		var s SeriesInfo
		var first, last int64
		if err := rows.Scan(&s.Symbol, &s.Timeframe, &s.Bars, &first, &last); err != nil {
			return nil, fmt.Errorf("sqlite scan series: %w", err)
		}
		s.First = time.Unix(first, 0).UTC()
		s.Last = time.Unix(last, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// StoredSignal is an archived emission.
type StoredSignal struct {
	Symbol     string
	Timeframe  string
	Index      int64
	EventIndex int64
	TS         time.Time
	Labels     []string
}

// ReadSignals returns archived emissions of one series ordered by index.
func (r *Reader) ReadSignals(ctx context.Context, symbol, tf string) ([]StoredSignal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, tf, idx, event_idx, ts, labels
		FROM signals
		WHERE symbol = ? AND tf = ?
		ORDER BY idx ASC
	`, symbol, tf)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []StoredSignal
	for rows.Next() {
		var s StoredSignal
		var tsUnix int64
		var labels string
		if err := rows.Scan(&s.Symbol, &s.Timeframe, &s.Index, &s.EventIndex, &tsUnix, &labels); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		s.TS = time.Unix(tsUnix, 0).UTC()
		s.Labels = strings.Split(labels, ",")
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
