package sigengine

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/strategy"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// memSource serves fixed history per stream, then a fixed live tail.
type memSource struct {
	history map[string][]model.Bar
	live    []model.Bar

	mu      sync.Mutex
	tailIDs map[string]string
}

func (m *memSource) Replay(ctx context.Context, stream string, out chan<- model.Bar) (string, error) {
	last := "0"
	for i, b := range m.history[stream] {
		select {
		case out <- b:
		case <-ctx.Done():
			return last, ctx.Err()
		}
		last = "1-" + model.Itoa(i)
	}
	return last, nil
}

func (m *memSource) Tail(ctx context.Context, lastIDs map[string]string, _ time.Duration, out chan<- model.Bar) error {
	m.mu.Lock()
	m.tailIDs = make(map[string]string, len(lastIDs))
	for k, v := range lastIDs {
		m.tailIDs[k] = v
	}
	m.mu.Unlock()
	for _, b := range m.live {
		select {
		case out <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *memSource) Close() error { return nil }

func series(symbol string, from, n int) []model.Bar {
	base := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	bars := make([]model.Bar, 0, n)
	for i := from; i < from+n; i++ {
		p := 100 + 5*math.Sin(float64(i)/6)
		bars = append(bars, model.Bar{
			Symbol: symbol, Timeframe: "5m", Index: int64(i),
			TS:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open: p - 0.3, High: p + 1, Low: p - 1, Close: p + 0.3, Volume: 1000,
			Confirmed: true,
		})
	}
	return bars
}

type collector struct {
	mu     sync.Mutex
	events []model.SignalEvent
}

func (c *collector) run(ctx context.Context, ch <-chan model.SignalEvent) {
	for ev := range ch {
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
	}
}

func TestService_WarmupThenLive(t *testing.T) {
	live := series("SBIN", 100, 20)
	live = append(live, model.Bar{Symbol: "SBIN", Timeframe: "5m", Index: 120, Confirmed: false, Open: 1, High: 1, Low: 1, Close: 1})
	bad := series("SBIN", 121, 1)[0]
	bad.High = math.NaN()
	live = append(live, bad)
	live = append(live, series("SBIN", 50, 1)...) // out of order

	src := &memSource{
		history: map[string][]model.Bar{"bar:5m:SBIN": series("SBIN", 0, 100)},
		live:    live,
	}
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	svc, err := New(strategy.DefaultConfig(), src, []string{"bar:5m:SBIN"}, prom, health, Options{})
	if err != nil {
		t.Fatal(err)
	}
	col := &collector{}
	svc.AddSink("collector", col.run)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(col.events) != 20 {
		t.Fatalf("expected only the 20 live confirmed bars to be published, got %d", len(col.events))
	}
	if col.events[0].Index != 100 || col.events[19].Index != 119 {
		t.Errorf("unexpected event range %d..%d", col.events[0].Index, col.events[19].Index)
	}
	// the warm-up fed the indicators, so live frames are already available
	if !model.Available(col.events[0].Frame.K) {
		t.Error("expected warmed-up stochastic on the first live bar")
	}

	if got := testutil.ToFloat64(prom.BarsProcessed.WithLabelValues("5m")); got != 120 {
		t.Errorf("bars processed = %v, want 120", got)
	}
	if got := testutil.ToFloat64(prom.UnconfirmedSkipped); got != 1 {
		t.Errorf("unconfirmed skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prom.BarErrors.WithLabelValues("malformed")); got != 1 {
		t.Errorf("malformed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prom.BarErrors.WithLabelValues("out_of_order")); got != 1 {
		t.Errorf("out_of_order = %v, want 1", got)
	}
	if !health.WarmupDone {
		t.Error("health should report warm-up done")
	}
	if src.tailIDs["bar:5m:SBIN"] != "1-99" {
		t.Errorf("tail should resume after the last replayed id, got %q", src.tailIDs["bar:5m:SBIN"])
	}
}

func TestService_MatchesOfflineReplay(t *testing.T) {
	all := series("SBIN", 0, 200)
	src := &memSource{
		history: map[string][]model.Bar{"bar:5m:SBIN": all[:120]},
		live:    all[120:],
	}
	cfg := strategy.DefaultConfig()
	svc, err := New(cfg, src, []string{"bar:5m:SBIN"}, nil, nil, Options{PublishWarmup: true})
	if err != nil {
		t.Fatal(err)
	}
	col := &collector{}
	svc.AddSink("collector", col.run)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want, err := strategy.Replay(cfg, "SBIN", "5m", all)
	if err != nil {
		t.Fatal(err)
	}
	if len(col.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(col.events))
	}
	for i := range want {
		if col.events[i].Emission != want[i].Emission || col.events[i].Flags != want[i].Flags {
			t.Fatalf("bar %d: live %+v != replay %+v", i, col.events[i].Emission, want[i].Emission)
		}
	}
}

func TestService_CancelStopsCleanly(t *testing.T) {
	src := &blockingSource{}
	svc, err := New(strategy.DefaultConfig(), src, []string{"bar:5m:X"}, nil, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	svc.AddSink("noop", func(ctx context.Context, ch <-chan model.SignalEvent) {
		for range ch {
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancel should be a clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

// blockingSource has no history and tails until cancelled.
type blockingSource struct{}

func (blockingSource) Replay(context.Context, string, chan<- model.Bar) (string, error) {
	return "0", nil
}

func (blockingSource) Tail(ctx context.Context, _ map[string]string, _ time.Duration, _ chan<- model.Bar) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingSource) Close() error { return nil }

func TestNew_InvalidConfig(t *testing.T) {
	cfg := strategy.DefaultConfig()
	cfg.KDJPeriod = 0
	if _, err := New(cfg, blockingSource{}, nil, nil, nil, Options{}); err == nil {
		t.Error("expected invalid config error")
	}
}
