// cmd/sigengine is the live signal service. It warms up on the Redis bar
// streams, tails them, and delivers L/L+/R/R+ events to Redis, websocket
// clients, alert notifiers and an optional SQLite archive.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-signals/config"
	"trading-signals/internal/gateway"
	"trading-signals/internal/logger"
	"trading-signals/internal/metrics"
	"trading-signals/internal/model"
	"trading-signals/internal/notification"
	"trading-signals/internal/sigengine"
	redisstore "trading-signals/internal/store/redis"
	sqlitestore "trading-signals/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	logger.Init("sigengine", logger.ParseLevel(cfg.LogLevel))

	sig, err := config.LoadSignalConfig(cfg.SignalConfig)
	if err != nil {
		log.Fatalf("[sigengine] %v", err)
	}

	ctx, cancel := context.WithCancel(logger.WithTraceID(context.Background(), logger.NewRunID()))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Redis
	reader, err := redisstore.NewReader(redisstore.ReaderConfig{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, BarPrefix: cfg.BarStreamPrefix,
	})
	if err != nil {
		log.Fatalf("[sigengine] redis reader: %v", err)
	}
	defer reader.Close()

	writer, err := redisstore.New(redisstore.WriterConfig{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, BarPrefix: cfg.BarStreamPrefix,
	})
	if err != nil {
		log.Fatalf("[sigengine] redis writer: %v", err)
	}
	defer writer.Close()

	symbols, tfs := cfg.Symbols(), cfg.Timeframes(sig)
	var streams []string
	for _, tf := range tfs {
		for _, sym := range symbols {
			streams = append(streams, redisstore.BarStreamKey(reader.Prefix(), tf, sym))
		}
	}
	present := map[string]bool{}
	for _, s := range reader.DiscoverStreams(ctx, tfs, symbols) {
		present[s] = true
	}
	for _, s := range streams {
		if !present[s] {
			log.Printf("[sigengine] stream %s does not exist yet, waiting for bars", s)
		}
	}
	log.Printf("[sigengine] symbols=%v tfs=%v streams=%d", symbols, tfs, len(streams))

	// Metrics and health
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, writer.Client(), 5*time.Second)

	writer.OnReject = func(model.SignalEvent) { prom.PublishRejected.Inc() }
	logChange := writer.Breaker().OnStateChange
	writer.Breaker().OnStateChange = func(from, to redisstore.State) {
		prom.BreakerState.Set(float64(to))
		if logChange != nil {
			logChange(from, to)
		}
	}

	hub := gateway.NewHub()
	hub.FiredOnly = cfg.FiredOnly
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }

	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.WebhookURL != "" {
		notifier = notification.Multi{notifier, notification.NewWebhookNotifier(cfg.WebhookURL)}
	}
	alerter := notification.NewAlerter(notifier)
	alerter.OnError = func(ev model.SignalEvent, err error) {
		prom.AlertFailures.Inc()
		log.Printf("[sigengine] alert %s:%s #%d failed: %v", ev.Symbol, ev.Timeframe, ev.EventIndex, err)
	}

	svc, err := sigengine.New(sig, reader, streams, prom, health, sigengine.Options{})
	if err != nil {
		log.Fatalf("[sigengine] init failed: %v", err)
	}
	svc.AddSink("redis", writer.Run)
	svc.AddSink("websocket", hub.Run)
	svc.AddSink("alerts", alerter.Run)

	if cfg.SQLitePath != "" {
		archive, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			log.Fatalf("[sigengine] sqlite: %v", err)
		}
		defer archive.Close()
		svc.AddSink("sqlite", archive.RunSignals)
	}

	srv := metrics.NewServer(cfg.HTTPAddr, prom, health)
	gateway.RegisterRoutes(srv, hub)
	srv.Start()

	runErr := svc.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)

	if runErr != nil {
		log.Fatalf("[sigengine] fatal: %v", runErr)
	}
	log.Println("[sigengine] shutdown complete")
}
