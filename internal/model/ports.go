package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the signal pipeline from concrete storage
// implementations (Redis, SQLite).

// BarReader reads confirmed bars for replay and backtests.
type BarReader interface {
	// ReadBars returns bars of one series ordered by Index, starting after
	// afterIndex (use -1 for the full history).
	ReadBars(ctx context.Context, symbol, tf string, afterIndex int64) ([]Bar, error)

	// Close releases underlying resources.
	Close() error
}

// BarWriter persists bars.
type BarWriter interface {
	WriteBars(ctx context.Context, bars []Bar) error
	Close() error
}

// SignalWriter persists emitted signal events.
type SignalWriter interface {
	WriteSignals(ctx context.Context, events []SignalEvent) error
	Close() error
}

// BarSource streams bars of several series from a message log.
type BarSource interface {
	// Replay delivers every retained message of stream in order and returns
	// the last message ID seen ("0" when the stream is empty).
	Replay(ctx context.Context, stream string, out chan<- Bar) (string, error)

	// Tail blocks on new messages after the given IDs until ctx is done.
	Tail(ctx context.Context, lastIDs map[string]string, block time.Duration, out chan<- Bar) error

	Close() error
}

// SignalSink receives signal events for delivery.
type SignalSink interface {
	Publish(ctx context.Context, ev SignalEvent) error
}
