// Package sigengine is the live signal service: it warms every series up
// by replaying its bar stream from the start, then tails new bars, runs them
// through the strategy engine and fans the events out to the sinks.
package sigengine

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"trading-signals/internal/logger"
	"trading-signals/internal/marketdata/bus"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/strategy"
)

// Sink consumes signal events until its channel is closed or ctx is done.
type Sink struct {
	Name string
	Run  func(ctx context.Context, ch <-chan model.SignalEvent)
}

// Options tune the service. Zero values pick the defaults.
type Options struct {
	BarBuffer   int           // bar channel capacity (default 4096)
	EventBuffer int           // per-sink channel capacity (default 1024)
	TailBlock   time.Duration // XREAD block (default 2s)

	// PublishWarmup forwards events produced while replaying history.
	// Off by default so a restart does not re-alert old signals.
	PublishWarmup bool
}

// Service is the top-level orchestrator of the signal engine.
type Service struct {
	engine  *strategy.Engine
	source  model.BarSource
	streams []string
	sinks   []Sink
	opts    Options

	prom   *metrics.Metrics
	health *metrics.HealthStatus
}

// sourced tags a bar with the phase it was read in.
type sourced struct {
	bar  model.Bar
	live bool
}

// New creates a service for the given bar streams.
func New(sig strategy.Config, source model.BarSource, streams []string, prom *metrics.Metrics, health *metrics.HealthStatus, opts Options) (*Service, error) {
	engine, err := strategy.NewEngine(sig)
	if err != nil {
		return nil, err
	}
	if opts.BarBuffer <= 0 {
		opts.BarBuffer = 4096
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 1024
	}
	if opts.TailBlock <= 0 {
		opts.TailBlock = 2 * time.Second
	}
	if prom == nil {
		prom = metrics.New()
	}
	if health == nil {
		health = metrics.NewHealthStatus()
	}
	health.SetStreams(streams)

	return &Service{
		engine:  engine,
		source:  source,
		streams: streams,
		opts:    opts,
		prom:    prom,
		health:  health,
	}, nil
}

// AddSink registers a consumer. Must be called before Run.
func (s *Service) AddSink(name string, run func(ctx context.Context, ch <-chan model.SignalEvent)) {
	s.sinks = append(s.sinks, Sink{Name: name, Run: run})
}

// Run blocks until ctx is cancelled or a component fails. Cancellation is
// a clean stop and returns nil.
func (s *Service) Run(ctx context.Context) error {
	log.Printf("[sigengine] starting: %d streams, %d sinks", len(s.streams), len(s.sinks))

	barCh := make(chan sourced, s.opts.BarBuffer)
	evCh := make(chan model.SignalEvent, s.opts.EventBuffer)

	fan := bus.New(s.opts.EventBuffer)
	fan.OnDrop = s.prom.FanoutDrop

	g, gctx := errgroup.WithContext(ctx)

	for _, sink := range s.sinks {
		sink := sink
		ch := fan.Subscribe()
		g.Go(func() error {
			sink.Run(gctx, ch)
			log.Printf("[sigengine] sink %s stopped", sink.Name)
			return nil
		})
	}

	g.Go(func() error {
		fan.Run(gctx, evCh)
		return nil
	})

	g.Go(func() error {
		defer close(evCh)
		return s.processLoop(gctx, barCh, evCh)
	})

	g.Go(func() error {
		defer close(barCh)
		return s.feed(gctx, barCh)
	})

	err := g.Wait()
	log.Printf("[sigengine] stopped (%d series)", s.engine.Len())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// feed replays every stream, then tails them from where replay stopped.
func (s *Service) feed(ctx context.Context, out chan<- sourced) error {
	lastIDs := make(map[string]string, len(s.streams))
	for _, stream := range s.streams {
		n, lastID, err := s.replayStream(ctx, stream, out)
		if err != nil {
			return err
		}
		lastIDs[stream] = lastID
		log.Printf("[sigengine] warm-up %s: %d bars (last id %s)", stream, n, lastID)
	}
	s.health.SetWarmupDone(true)
	log.Printf("[sigengine] warm-up complete, tailing %d streams", len(lastIDs))

	live := make(chan model.Bar, 256)
	tailErr := make(chan error, 1)
	go func() {
		tailErr <- s.source.Tail(ctx, lastIDs, s.opts.TailBlock, live)
		close(live)
	}()

	for bar := range live {
		select {
		case out <- sourced{bar: bar, live: true}:
		case <-ctx.Done():
		}
	}
	return <-tailErr
}

func (s *Service) replayStream(ctx context.Context, stream string, out chan<- sourced) (int, string, error) {
	bars := make(chan model.Bar, 256)
	type result struct {
		lastID string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		id, err := s.source.Replay(ctx, stream, bars)
		close(bars)
		done <- result{id, err}
	}()

	n := 0
	for bar := range bars {
		n++
		select {
		case out <- sourced{bar: bar}:
		case <-ctx.Done():
		}
	}
	r := <-done
	return n, r.lastID, r.err
}

func (s *Service) processLoop(ctx context.Context, in <-chan sourced, out chan<- model.SignalEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				return nil
			}
			ev, ok := s.process(ctx, item.bar)
			if !ok || (!item.live && !s.opts.PublishWarmup) {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// process runs one bar through the engine and records metrics.
func (s *Service) process(ctx context.Context, bar model.Bar) (model.SignalEvent, bool) {
	if !bar.Confirmed {
		s.prom.UnconfirmedSkipped.Inc()
		return model.SignalEvent{}, false
	}

	start := time.Now()
	ev, err := s.engine.Process(bar)
	s.prom.EvalDuration.Observe(time.Since(start).Seconds())
	s.prom.Streams.Set(float64(s.engine.Len()))

	if err != nil {
		reason := "other"
		switch {
		case errors.Is(err, model.ErrMalformedBar):
			reason = "malformed"
		case errors.Is(err, strategy.ErrOutOfOrder):
			reason = "out_of_order"
		}
		s.prom.BarErrors.WithLabelValues(reason).Inc()
		attrs := append([]any{"symbol", bar.Symbol, "tf", bar.Timeframe, "index", bar.Index, "error", err}, logger.LogWithTrace(ctx)...)
		slog.Warn("bar rejected", attrs...)
		return model.SignalEvent{}, false
	}
	if ev == nil {
		return model.SignalEvent{}, false
	}

	s.prom.ObserveEvent(*ev)
	s.health.SetLastBarTime(bar.TS)
	return *ev, true
}
