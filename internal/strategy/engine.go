// Package strategy turns confirmed OHLCV bars into L / L+ / R / R+ signal
// events.
//
// A Stream owns the indicator bank, evaluator and spacing gate of one
// series. The Engine routes bars of many series to their streams, creating
// them lazily with the shared configuration.
package strategy

import (
	"context"
	"errors"
	"log"

	"trading-signals/internal/model"
)

// Engine manages one Stream per series key ("symbol:tf").
// Designed for single-goroutine usage, no locks needed.
type Engine struct {
	cfg     Config
	streams map[string]*Stream
}

// NewEngine validates cfg and returns an engine with no streams.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, streams: make(map[string]*Stream, 64)}, nil
}

// Stream returns the stream for a series, creating it on first use.
// An empty tf uses the configured timeframe.
func (e *Engine) Stream(symbol, tf string) (*Stream, error) {
	key := symbol + ":" + tf
	if s, ok := e.streams[key]; ok {
		return s, nil
	}
	s, err := NewStream(e.cfg, symbol, tf)
	if err != nil {
		return nil, err
	}
	e.streams[key] = s
	log.Printf("[strategy] new stream %s (tf=%s)", key, s.tfName)
	return s, nil
}

// Process routes one bar to its series' stream.
func (e *Engine) Process(bar model.Bar) (*model.SignalEvent, error) {
	s, err := e.Stream(bar.Symbol, bar.Timeframe)
	if err != nil {
		return nil, err
	}
	return s.Process(bar)
}

// Len returns the number of live streams.
func (e *Engine) Len() int { return len(e.streams) }

// Run consumes bars from in and sends events to out until in is closed or
// ctx is done. Rejected bars are reported through onError (may be nil) and
// do not stop the loop.
func (e *Engine) Run(ctx context.Context, in <-chan model.Bar, out chan<- model.SignalEvent, onError func(model.Bar, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-in:
			if !ok {
				return nil
			}
			ev, err := e.Process(bar)
			if err != nil {
				if onError != nil {
					onError(bar, err)
				}
				continue
			}
			if ev == nil {
				continue
			}
			select {
			case out <- *ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Replay runs bars of a single series through a fresh stream and returns
// every event. Rejected bars are skipped; their errors are joined into the
// returned error while processing continues.
func Replay(cfg Config, symbol, tf string, bars []model.Bar) ([]model.SignalEvent, error) {
	s, err := NewStream(cfg, symbol, tf)
	if err != nil {
		return nil, err
	}
	events := make([]model.SignalEvent, 0, len(bars))
	var errs []error
	for _, b := range bars {
		ev, err := s.Process(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, errors.Join(errs...)
}
