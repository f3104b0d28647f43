package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"trading-signals/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultLatestTTL = 24 * time.Hour
	signalStreamLen  = 5000
	barStreamLen     = 20000
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr      string // Redis address, e.g. "localhost:6379"
	Password  string
	DB        int
	BarPrefix string
}

// Writer publishes signal events and bars to Redis.
type Writer struct {
	client *goredis.Client
	prefix string
	cb     *CircuitBreaker

	// OnReject is called when a publish is refused by the open breaker.
	OnReject func(ev model.SignalEvent)
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// Breaker returns the publish circuit breaker.
func (w *Writer) Breaker() *CircuitBreaker { return w.cb }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.BarPrefix
	if prefix == "" {
		prefix = DefaultBarPrefix
	}

	cb := NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[redis] publish breaker %s -> %s", from, to)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client, prefix: prefix, cb: cb}, nil
}

// Publish writes one evaluated bar. Every event is published on the
// series channel; fired signals are also appended to the signal stream
// and stored as the symbol's latest signal.
//
// While the breaker is open the event is refused with ErrCircuitOpen.
// Signals are not buffered: a late signal is worse than a lost one.
func (w *Writer) Publish(ctx context.Context, ev model.SignalEvent) error {
	err := w.cb.Execute(func() error {
		return w.publish(ctx, ev)
	})
	if errors.Is(err, ErrCircuitOpen) && w.OnReject != nil {
		w.OnReject(ev)
	}
	return err
}

func (w *Writer) publish(ctx context.Context, ev model.SignalEvent) error {
	jsonData := string(ev.JSON())

	pipe := w.client.Pipeline()
	pipe.Publish(ctx, SignalChannel(ev.Timeframe, ev.Symbol), jsonData)

	if ev.Emission.Any() {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: SignalStreamKey(ev.Timeframe, ev.Symbol),
			MaxLen: signalStreamLen,
			Approx: true,
			Values: map[string]interface{}{"data": jsonData},
		})
		pipe.Set(ctx, LatestSignalKey(ev.Symbol), jsonData, defaultLatestTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("signal pipeline %s:%s #%d: %w", ev.Symbol, ev.Timeframe, ev.Index, err)
	}
	return nil
}

// Run reads events and publishes them until ctx is cancelled or ch is closed.
func (w *Writer) Run(ctx context.Context, ch <-chan model.SignalEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := w.Publish(ctx, ev); err != nil && !errors.Is(err, ErrCircuitOpen) {
				log.Printf("[redis] %v", err)
			}
		}
	}
}

// WriteBars appends bars to their series streams in one pipeline.
// Used to seed the bar log from imported history.
func (w *Writer) WriteBars(ctx context.Context, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	pipe := w.client.Pipeline()
	for i := range bars {
		b := &bars[i]
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: BarStreamKey(w.prefix, b.Timeframe, b.Symbol),
			MaxLen: barStreamLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(b.JSON())},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bar pipeline (%d bars): %w", len(bars), err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
