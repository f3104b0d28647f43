package main

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"trading-signals/internal/marketdata/replay"
	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
	"trading-signals/internal/strategy"
)

var t0 = time.Date(2026, time.March, 2, 3, 45, 0, 0, time.UTC) // Monday

func waveBars(n int, tf string, step time.Duration) []model.Bar {
	bars := make([]model.Bar, n)
	prev := 100.0
	for i := range bars {
		c := 100 + 0.05*float64(i) + 4*math.Sin(float64(i)*0.3)
		bars[i] = model.Bar{
			Symbol: "SYN", Timeframe: tf, Index: int64(i),
			TS:   t0.Add(time.Duration(i) * step),
			Open: prev, High: math.Max(prev, c) + 0.3, Low: math.Min(prev, c) - 0.3, Close: c,
			Volume: 1000 + 500*math.Abs(math.Cos(float64(i)*0.7)), Confirmed: true,
		}
		prev = c
	}
	return bars
}

func TestRun_MatchesStrategyReplay(t *testing.T) {
	cfg := strategy.DefaultConfig()
	bars := waveBars(400, "15m", 15*time.Minute)

	want, err := strategy.Replay(cfg, "SYN", "15m", bars)
	if err != nil {
		t.Fatal(err)
	}

	res, err := run(context.Background(), cfg, markethours.New(nil), memReader{bars: bars},
		[]replay.Series{{Symbol: "SYN", Timeframe: "15m"}}, "", 0)
	if err != nil {
		t.Fatal(err)
	}

	s := res.stats["SYN:15m"]
	if s == nil || s.bars != len(want) {
		t.Fatalf("expected %d evaluated bars, got %+v", len(want), s)
	}
	var fired []model.SignalEvent
	for _, ev := range want {
		if ev.Emission.Any() {
			fired = append(fired, ev)
		}
	}
	if len(res.fired) != len(fired) {
		t.Fatalf("fired: got %d, want %d", len(res.fired), len(fired))
	}
	for i := range fired {
		if res.fired[i].EventIndex != fired[i].EventIndex || res.fired[i].Emission != fired[i].Emission {
			t.Errorf("signal %d: got %+v, want %+v", i, res.fired[i].Emission, fired[i].Emission)
		}
	}
}

func TestRun_Resample(t *testing.T) {
	cfg := strategy.DefaultConfig()
	bars := waveBars(300, "1m", time.Minute)

	res, err := run(context.Background(), cfg, markethours.New(nil), memReader{bars: bars},
		[]replay.Series{{Symbol: "SYN", Timeframe: "1m"}}, "5m", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.stats["SYN:1m"]; ok {
		t.Error("base timeframe should not reach the engine when resampling")
	}
	s := res.stats["SYN:5m"]
	if s == nil || s.bars < 59 || s.bars > 60 {
		t.Fatalf("expected ~60 confirmed 5m bars, got %+v", s)
	}
	if s.rejected != 0 {
		t.Errorf("forming snapshots must be skipped, not rejected: %d", s.rejected)
	}
}

func TestRun_CountsRejectedBars(t *testing.T) {
	bars := waveBars(50, "15m", 15*time.Minute)
	bars[10].Close = math.NaN()

	res, err := run(context.Background(), strategy.DefaultConfig(), markethours.New(nil), memReader{bars: bars},
		[]replay.Series{{Symbol: "SYN", Timeframe: "15m"}}, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	s := res.stats["SYN:15m"]
	if s.rejected != 1 || s.bars != 49 {
		t.Errorf("expected 49 bars and 1 rejected, got %+v", s)
	}
}

func TestWeekdayFilter(t *testing.T) {
	// 1D bars from Monday: indexes 5 and 6 fall on the weekend
	bars := waveBars(10, "1D", 24*time.Hour)
	f := weekdayFilter{BarReader: memReader{bars: bars}, cal: markethours.New(nil)}

	got, err := f.ReadBars(context.Background(), "SYN", "1D", -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 weekday bars, got %d", len(got))
	}
	for i, b := range got {
		if b.Index != int64(i) {
			t.Errorf("bar %d reindexed to %d", i, b.Index)
		}
		if wd := b.TS.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("weekend bar kept: %v", b.TS)
		}
	}
}

func TestRenderSummary(t *testing.T) {
	res := newResult()
	res.add(model.SignalEvent{Symbol: "SYN", Timeframe: "15m", Emission: model.Emission{LPlus: true}, Labels: []string{"L+"}})
	res.add(model.SignalEvent{Symbol: "SYN", Timeframe: "15m", Flags: model.SignalFlags{RBase: true}})
	res.reject(model.Bar{Symbol: "SYN", Timeframe: "15m"}, nil)

	var buf bytes.Buffer
	renderSummary(&buf, res, "run-1")
	out := buf.String()
	// labels keep their case so L+ and R+ stay readable
	for _, want := range []string{"SYN:15m", "Total", "run-1", "Suppressed", "Rejected", "Series"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	s := res.stats["SYN:15m"]
	if s.bars != 2 || s.fired[model.LabelLPlus] != 1 || s.suppressed != 1 || s.rejected != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}
