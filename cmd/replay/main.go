// cmd/replay runs stored or CSV bar history through the signal engine and
// prints a per-series summary of the L/L+/R/R+ signals it produced.
//
// Usage:
//
//	go run ./cmd/replay --db=data/bars.db --symbol=SBIN --tf=15m
//	go run ./cmd/replay --csv=sbin_5m.csv --symbol=SBIN --tf=5m --resample=15m --signals
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"trading-signals/config"
	"trading-signals/internal/logger"
	"trading-signals/internal/marketdata/csvbars"
	"trading-signals/internal/marketdata/replay"
	"trading-signals/internal/marketdata/tfbuilder"
	"trading-signals/internal/markethours"
	"trading-signals/internal/model"
	sqlitestore "trading-signals/internal/store/sqlite"
	"trading-signals/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	dbPath := flag.String("db", "data/bars.db", "SQLite database with stored bars")
	csvPath := flag.String("csv", "", "Read bars from a CSV file instead of the database")
	symbol := flag.String("symbol", "", "Symbol to replay (CSV: required; DB: empty = every stored series)")
	tf := flag.String("tf", "", "Timeframe of the input bars")
	importCSV := flag.Bool("import", false, "Store the CSV bars in --db before replaying")
	resample := flag.String("resample", "", "Resample input bars to this timeframe before evaluation")
	weekdays := flag.Bool("weekdays", false, "Drop bars that fall on a weekend")
	sigPath := flag.String("config", "", "Signal config YAML (empty = defaults)")
	speed := flag.Float64("speed", 0, "Playback speed multiplier (0=max, 1=realtime, 100=100x)")
	archive := flag.String("archive", "", "Write fired signals to this SQLite database")
	showSignals := flag.Bool("signals", false, "Print every fired signal")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logger.Init("replay", logger.ParseLevel(*logLevel))
	runID := logger.NewRunID()

	sig, err := config.LoadSignalConfig(*sigPath)
	if err != nil {
		log.Fatalf("[replay] %v", err)
	}
	cal, err := markethours.Load(sig.SessionLocation)
	if err != nil {
		log.Fatalf("[replay] %v", err)
	}

	ctx, cancel := context.WithCancel(logger.WithTraceID(context.Background(), runID))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	reader, series, err := openInput(ctx, *dbPath, *csvPath, *symbol, *tf, *importCSV)
	if err != nil {
		log.Fatalf("[replay] %v", err)
	}
	defer reader.Close()
	if *weekdays {
		reader = weekdayFilter{BarReader: reader, cal: cal}
	}

	res, err := run(ctx, sig, cal, reader, series, *resample, *speed)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[replay] %v", err)
	}

	if *archive != "" {
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *archive})
		if err != nil {
			log.Fatalf("[replay] archive: %v", err)
		}
		if err := w.WriteSignals(context.Background(), res.fired); err != nil {
			log.Printf("[replay] archive write: %v", err)
		}
		w.Close()
	}

	slog.Info("replay finished", append(logger.LogWithTrace(ctx),
		"series", len(res.stats), "fired", len(res.fired))...)

	renderSummary(os.Stdout, res, runID)
	if *showSignals {
		renderSignals(os.Stdout, res.fired)
	}
}

// openInput returns the bar reader and the series to replay.
func openInput(ctx context.Context, dbPath, csvPath, symbol, tf string, importCSV bool) (model.BarReader, []replay.Series, error) {
	if csvPath != "" {
		if symbol == "" || tf == "" {
			return nil, nil, errors.New("--csv needs --symbol and --tf")
		}
		bars, err := csvbars.ReadFile(csvPath, symbol, tf)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[replay] loaded %d bars from %s", len(bars), csvPath)
		if importCSV {
			w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: dbPath})
			if err != nil {
				return nil, nil, err
			}
			err = w.WriteBars(ctx, bars)
			w.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("import: %w", err)
			}
			log.Printf("[replay] imported %d bars into %s", len(bars), dbPath)
		}
		return memReader{bars: bars}, []replay.Series{{Symbol: symbol, Timeframe: tf}}, nil
	}

	r, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if symbol != "" && tf != "" {
		return r, []replay.Series{{Symbol: symbol, Timeframe: tf}}, nil
	}
	infos, err := r.ListSeries(ctx)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	var series []replay.Series
	for _, s := range infos {
		if (symbol == "" || s.Symbol == symbol) && (tf == "" || s.Timeframe == tf) {
			series = append(series, replay.Series{Symbol: s.Symbol, Timeframe: s.Timeframe})
		}
	}
	if len(series) == 0 {
		r.Close()
		return nil, nil, fmt.Errorf("no stored series match symbol=%q tf=%q", symbol, tf)
	}
	return r, series, nil
}

// run wires replayer -> (tfbuilder) -> engine -> collector.
func run(ctx context.Context, sig strategy.Config, cal *markethours.Calendar, reader model.BarReader,
	series []replay.Series, resample string, speed float64) (*result, error) {

	engine, err := strategy.NewEngine(sig)
	if err != nil {
		return nil, err
	}

	var builder *tfbuilder.Builder
	if resample != "" {
		if builder, err = tfbuilder.New([]string{resample}, cal); err != nil {
			return nil, err
		}
		// forming snapshots exercise the engine's unconfirmed-bar gate
		builder.EmitForming = true
	}

	res := newResult()
	g, gctx := errgroup.WithContext(ctx)

	rawCh := make(chan model.Bar, 1024)
	g.Go(func() error {
		defer close(rawCh)
		_, err := replay.New(reader).Run(gctx, series, speed, rawCh)
		return err
	})

	barCh := rawCh
	if builder != nil {
		resampled := make(chan model.Bar, 1024)
		barCh = resampled
		g.Go(func() error {
			defer close(resampled)
			return builder.Run(gctx, rawCh, resampled)
		})
	}

	evCh := make(chan model.SignalEvent, 1024)
	g.Go(func() error {
		defer close(evCh)
		return engine.Run(gctx, barCh, evCh, func(b model.Bar, err error) {
			res.reject(b, err)
			slog.Debug("bar rejected", append(logger.LogWithTrace(ctx),
				"series", b.Key(), "index", b.Index, "err", err)...)
		})
	})

	g.Go(func() error {
		for ev := range evCh {
			res.add(ev)
		}
		return nil
	})

	return res, g.Wait()
}

// memReader serves CSV bars through the BarReader port.
type memReader struct {
	bars []model.Bar
}

func (m memReader) ReadBars(_ context.Context, symbol, tf string, afterIndex int64) ([]model.Bar, error) {
	var out []model.Bar
	for _, b := range m.bars {
		if b.Symbol == symbol && b.Timeframe == tf && b.Index > afterIndex {
			out = append(out, b)
		}
	}
	return out, nil
}

func (memReader) Close() error { return nil }

// weekdayFilter drops weekend bars and reindexes what is left.
type weekdayFilter struct {
	model.BarReader
	cal *markethours.Calendar
}

func (f weekdayFilter) ReadBars(ctx context.Context, symbol, tf string, afterIndex int64) ([]model.Bar, error) {
	bars, err := f.BarReader.ReadBars(ctx, symbol, tf, afterIndex)
	if err != nil {
		return nil, err
	}
	out := bars[:0]
	for _, b := range bars {
		if f.cal.IsWeekday(b.TS) {
			b.Index = int64(len(out))
			out = append(out, b)
		}
	}
	return out, nil
}

type seriesStats struct {
	bars       int
	fired      map[string]int
	rejected   int
	suppressed int
}

// result is shared by the engine goroutine (rejects) and the collector.
type result struct {
	mu    sync.Mutex
	stats map[string]*seriesStats
	fired []model.SignalEvent
}

func newResult() *result {
	return &result{stats: make(map[string]*seriesStats)}
}

func (r *result) series(key string) *seriesStats {
	s, ok := r.stats[key]
	if !ok {
		s = &seriesStats{fired: make(map[string]int)}
		r.stats[key] = s
	}
	return s
}

func (r *result) reject(b model.Bar, _ error) {
	r.mu.Lock()
	r.series(b.Key()).rejected++
	r.mu.Unlock()
}

func (r *result) add(ev model.SignalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.series(ev.Symbol + ":" + ev.Timeframe)
	s.bars++
	for _, l := range ev.Emission.Labels() {
		s.fired[l]++
	}
	if (ev.Flags.LBase || ev.Flags.LPlus) && !(ev.Emission.L || ev.Emission.LPlus) {
		s.suppressed++
	}
	if (ev.Flags.RBase || ev.Flags.RPlus) && !(ev.Emission.R || ev.Emission.RPlus) {
		s.suppressed++
	}
	if ev.Emission.Any() {
		r.fired = append(r.fired, ev)
	}
}
