// Package tfbuilder provides an incremental timeframe resampler.
// It consumes confirmed base bars (e.g. 1m) and maintains "forming" bars for
// each target timeframe, updated in O(1) per bar per timeframe. When a bar
// arrives in a new bucket, the previous bucket's bar is confirmed and
// emitted with the next sequence index of its series.
package tfbuilder

import (
	"context"
	"fmt"
	"time"

	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
)

// mondayEpoch is 1970-01-05, the first Monday after the Unix epoch.
const mondayEpoch = 4 * 24 * 3600

// tfState holds the forming bar state for one (series, TF) pair.
type tfState struct {
	bucket int64 // bucket start (Unix seconds)
	bar    model.Bar
	next   int64 // index the next confirmed bar will carry
}

// target is one enabled output timeframe.
type target struct {
	tf     model.Timeframe
	name   string
	states map[string]*tfState
}

// Builder resamples base bars into multiple timeframes.
// Designed to run in a single goroutine (single consumer).
type Builder struct {
	targets []target
	cal     *markethours.Calendar

	// Bars whose bucket is behind the forming bucket are rejected, unless
	// they lag by at most StaleTolerance; those merge into the forming bar.
	StaleTolerance time.Duration

	// EmitForming sends an unconfirmed snapshot after every merged base bar.
	EmitForming bool

	// Metrics hooks
	OnBar      func(b model.Bar) // called on each confirmed output bar (optional)
	OnStaleBar func()            // called when a stale bar is rejected (optional)
}

// New creates a builder for the given timeframes. Daily buckets start at
// midnight in cal's location (nil = UTC). Monthly timeframes have no fixed
// bucket length and are rejected.
func New(tfs []string, cal *markethours.Calendar) (*Builder, error) {
	if cal == nil {
		cal = markethours.New(nil)
	}
	b := &Builder{cal: cal, EmitForming: true}
	for _, s := range tfs {
		tf, err := model.ParseTimeframe(s)
		if err != nil {
			return nil, err
		}
		if tf.Duration() <= 0 {
			return nil, fmt.Errorf("tfbuilder: timeframe %s has no fixed bucket length", s)
		}
		b.targets = append(b.targets, target{
			tf:     tf,
			name:   s,
			states: make(map[string]*tfState, 64), // preallocate for ~64 symbols
		})
	}
	return b, nil
}

// bucketStart aligns ts to the start of its bucket.
func (b *Builder) bucketStart(ts time.Time, tf model.Timeframe) int64 {
	sec := ts.Unix()
	d := int64(tf.Duration() / time.Second)
	switch {
	case tf.Daily && tf.Multiplier == 1:
		return b.cal.SessionStart(ts).Unix()
	case tf.Weekly:
		off := sec - mondayEpoch
		return sec - off%d
	}
	return sec - sec%d
}

// Process handles one base bar against all enabled timeframes and calls
// emit for every output bar (confirmed or forming). Unconfirmed base bars
// are ignored. This is the hot path, O(1) per TF.
func (b *Builder) Process(in model.Bar, emit func(model.Bar)) {
	if !in.Confirmed {
		return
	}
	for i := range b.targets {
		t := &b.targets[i]
		bucket := b.bucketStart(in.TS, t.tf)
		st, exists := t.states[in.Symbol]

		if exists && bucket < st.bucket {
			lag := time.Duration(st.bucket-bucket) * time.Second
			if b.StaleTolerance == 0 || lag > b.StaleTolerance {
				if b.OnStaleBar != nil {
					b.OnStaleBar()
				}
				continue
			}
			// a slightly late bar is merged into the current bucket
			bucket = st.bucket
		}

		if exists && bucket > st.bucket {
			// New bucket: confirm the forming bar
			b.confirm(st, emit)
			st.bucket = bucket
			st.bar = openBar(in, t.name, bucket, st.next)
			if b.EmitForming {
				emit(st.bar)
			}
			continue
		}

		if !exists {
			st = &tfState{bucket: bucket, bar: openBar(in, t.name, bucket, 0)}
			t.states[in.Symbol] = st
			if b.EmitForming {
				emit(st.bar)
			}
			continue
		}

		// Same bucket: merge OHLCV
		fb := &st.bar
		if in.High > fb.High {
			fb.High = in.High
		}
		if in.Low < fb.Low {
			fb.Low = in.Low
		}
		fb.Close = in.Close
		fb.Volume += in.Volume
		if b.EmitForming {
			emit(*fb)
		}
	}
}

func openBar(in model.Bar, tf string, bucket, index int64) model.Bar {
	return model.Bar{
		Symbol:    in.Symbol,
		Timeframe: tf,
		Index:     index,
		TS:        time.Unix(bucket, 0).UTC(),
		Open:      in.Open,
		High:      in.High,
		Low:       in.Low,
		Close:     in.Close,
		Volume:    in.Volume,
	}
}

func (b *Builder) confirm(st *tfState, emit func(model.Bar)) {
	done := st.bar
	done.Confirmed = true
	st.next = done.Index + 1
	emit(done)
	if b.OnBar != nil {
		b.OnBar(done)
	}
}

// Flush confirms and emits every forming bar, e.g. at end of a replay.
func (b *Builder) Flush(emit func(model.Bar)) {
	for i := range b.targets {
		for key, st := range b.targets[i].states {
			b.confirm(st, emit)
			delete(b.targets[i].states, key)
		}
	}
}

// Run consumes base bars from in and sends output bars to out until in is
// closed or ctx is done. Forming bars are flushed when in is closed.
func (b *Builder) Run(ctx context.Context, in <-chan model.Bar, out chan<- model.Bar) error {
	var sendErr error
	send := func(bar model.Bar) {
		if sendErr != nil {
			return
		}
		select {
		case out <- bar:
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-in:
			if !ok {
				b.Flush(send)
				return sendErr
			}
			b.Process(bar, send)
			if sendErr != nil {
				return sendErr
			}
		}
	}
}

// Timeframes returns the enabled output timeframes.
func (b *Builder) Timeframes() []string {
	out := make([]string, len(b.targets))
	for i, t := range b.targets {
		out[i] = t.name
	}
	return out
}
