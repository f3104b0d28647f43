package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trading-signals/internal/indicator"
	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
	"trading-signals/internal/ringbuf"
)

// ErrOutOfOrder is returned for a bar whose index does not increase.
var ErrOutOfOrder = errors.New("bar out of order")

// Stream folds the confirmed bars of one series into signal events.
// It is single-goroutine; restart means replaying the series from its start.
type Stream struct {
	symbol string
	tf     model.Timeframe
	tfName string

	bank   *indicator.Bank
	eval   *Evaluator
	gate   *SpacingGate
	frames *ringbuf.History[model.Frame]
	delay  bool

	lastIndex int64
	started   bool
}

// NewStream creates the pipeline for one series. tf overrides cfg.Timeframe
// when non-empty.
func NewStream(cfg Config, symbol, tf string) (*Stream, error) {
	if tf != "" {
		cfg.Timeframe = tf
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeframe, err := model.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cal, err := markethours.Load(cfg.SessionLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	bank, err := indicator.NewBank(cfg.bankConfig(timeframe.Class(), cal))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Stream{
		symbol: symbol,
		tf:     timeframe,
		tfName: cfg.Timeframe,
		bank:   bank,
		eval:   NewEvaluator(cfg, timeframe),
		gate:   NewSpacingGate(cfg.MinBarsBetween, cfg.SpacingScope),
		frames: ringbuf.New[model.Frame](cfg.historyDepth()),
		delay:  cfg.UseSignalDelay,
	}, nil
}

// Timeframe returns the parsed timeframe of the stream.
func (s *Stream) Timeframe() model.Timeframe { return s.tf }

// Process consumes one bar. Unconfirmed bars return (nil, nil) and leave
// every piece of state untouched. Malformed or out-of-order bars return an
// error, also without touching state. Every accepted bar yields exactly one
// event, whether or not a signal fired.
func (s *Stream) Process(bar model.Bar) (*model.SignalEvent, error) {
	if !bar.Confirmed {
		return nil, nil
	}
	if err := bar.Validate(); err != nil {
		return nil, err
	}
	if s.started && bar.Index <= s.lastIndex {
		return nil, fmt.Errorf("%w: index %d after %d", ErrOutOfOrder, bar.Index, s.lastIndex)
	}
	s.started = true
	s.lastIndex = bar.Index

	frame := s.bank.Update(bar)
	s.frames.Push(frame)
	flags := s.eval.Evaluate(s.frames)
	emission := s.emit(flags, bar.Index)

	ev := &model.SignalEvent{
		Symbol:     s.symbol,
		Timeframe:  s.tfName,
		Index:      bar.Index,
		EventIndex: bar.Index,
		TS:         bar.TS,
		Flags:      flags,
		Emission:   emission,
		Labels:     emission.Labels(),
		Frame:      frame,
	}
	if s.delay {
		if f, ok := s.frames.Ago(2); ok {
			ev.EventIndex = f.Bar.Index
		}
	}
	return ev, nil
}

// emit applies the refinement exclusivity and the spacing gate. The long
// family is arbitrated first, so with a shared counter a same-bar risk
// signal is spaced against it.
func (s *Stream) emit(f model.SignalFlags, index int64) model.Emission {
	var e model.Emission
	if (f.LBase || f.LPlus) && s.gate.Allowed(Long, index) {
		e.LPlus = f.LPlus
		e.L = f.LBase && !f.LPlus
		if e.L || e.LPlus {
			s.gate.Record(Long, index)
		}
	}
	if (f.RBase || f.RPlus) && s.gate.Allowed(Risk, index) {
		e.RPlus = f.RPlus
		e.R = f.RBase && !f.RPlus
		if e.R || e.RPlus {
			s.gate.Record(Risk, index)
		}
	}
	return e
}

// Run processes bars from in until it is closed or ctx is done, sending one
// event per confirmed bar to out. Bad bars are logged and skipped.
func (s *Stream) Run(ctx context.Context, in <-chan model.Bar, out chan<- model.SignalEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-in:
			if !ok {
				return nil
			}
			ev, err := s.Process(bar)
			if err != nil {
				slog.Warn("bar rejected", "symbol", s.symbol, "tf", s.tfName, "index", bar.Index, "error", err)
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
