// Package replay reads stored bars and emits them in timestamp order at a
// configurable speed, for backtests and demo feeds.
package replay

import (
	"context"
	"log"
	"sort"
	"time"

	"trading-signals/internal/model"
)

// Series identifies one stored bar series.
type Series struct {
	Symbol    string
	Timeframe string
}

// Replayer reads bars from a BarReader and replays them at a configurable
// speed multiplier.
type Replayer struct {
	reader model.BarReader

	// MaxGap caps a single simulated sleep.
	MaxGap time.Duration
}

// New creates a Replayer backed by reader.
func New(reader model.BarReader) *Replayer {
	return &Replayer{reader: reader, MaxGap: 5 * time.Second}
}

// Run replays every bar of the given series into outCh, interleaved by
// timestamp. speed controls the playback rate: 1.0 = real-time,
// 10.0 = 10x, 0 = as fast as possible. Bars are emitted confirmed.
func (r *Replayer) Run(ctx context.Context, series []Series, speed float64, outCh chan<- model.Bar) (int, error) {
	var all []model.Bar
	for _, s := range series {
		bars, err := r.reader.ReadBars(ctx, s.Symbol, s.Timeframe, -1)
		if err != nil {
			return 0, err
		}
		all = append(all, bars...)
	}
	if len(all) == 0 {
		log.Println("[replay] no bars found")
		return 0, nil
	}

	// interleave series; within one series Index order is already TS order
	sort.SliceStable(all, func(i, j int) bool { return all[i].TS.Before(all[j].TS) })
	log.Printf("[replay] loaded %d bars across %d series, speed=%.1fx", len(all), len(series), speed)

	var prevTS time.Time
	emitted := 0
	for _, b := range all {
		if speed > 0 && !prevTS.IsZero() {
			if gap := b.TS.Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / speed)
				if r.MaxGap > 0 && scaled > r.MaxGap {
					scaled = r.MaxGap
				}
				select {
				case <-ctx.Done():
					return emitted, ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = b.TS

		b.Confirmed = true
		select {
		case outCh <- b:
			emitted++
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d bars", emitted)
			return emitted, ctx.Err()
		}
	}

	log.Printf("[replay] completed: %d bars replayed", emitted)
	return emitted, nil
}
