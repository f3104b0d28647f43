// Package metrics exposes Prometheus metrics and the health endpoint of
// the signal services.
package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"trading-signals/internal/model"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the signal engine. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	BarsProcessed      *prometheus.CounterVec // labels: tf
	BarErrors          *prometheus.CounterVec // labels: reason
	UnconfirmedSkipped prometheus.Counter
	EvalDuration       prometheus.Histogram
	Streams            prometheus.Gauge

	SignalsEmitted    *prometheus.CounterVec // labels: kind (L, L+, R, R+)
	SignalsSuppressed *prometheus.CounterVec // labels: polarity (long, risk)

	FanoutDropsTotal *prometheus.CounterVec // labels: subscriber
	PublishRejected  prometheus.Counter
	BreakerState     prometheus.Gauge // 0=closed, 1=open, 2=half-open
	WSClients        prometheus.Gauge
	AlertFailures    prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		BarsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_bars_processed_total",
			Help: "Confirmed bars evaluated (by timeframe)",
		}, []string{"tf"}),
		BarErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_bar_errors_total",
			Help: "Bars rejected before evaluation (malformed, out_of_order, other)",
		}, []string{"reason"}),
		UnconfirmedSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_unconfirmed_skipped_total",
			Help: "Forming bars ignored by the confirmed-bar gate",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_eval_duration_seconds",
			Help:    "Indicator update plus signal evaluation latency per bar",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		Streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_streams",
			Help: "Active symbol:timeframe signal streams",
		}),

		SignalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_emitted_total",
			Help: "Signals emitted by kind",
		}, []string{"kind"}),
		SignalsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_suppressed_total",
			Help: "Signals that held but were dropped by bar spacing",
		}, []string{"polarity"}),

		FanoutDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_fanout_drops_total",
			Help: "Events dropped by the fan-out bus per subscriber",
		}, []string{"subscriber"}),
		PublishRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_publish_rejected_total",
			Help: "Redis publishes refused by the open circuit breaker",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_redis_circuit_breaker_state",
			Help: "Redis publish circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_ws_clients",
			Help: "Connected websocket clients",
		}),
		AlertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_alert_failures_total",
			Help: "Signal alerts that could not be delivered",
		}),
	}

	m.Registry.MustRegister(
		m.BarsProcessed,
		m.BarErrors,
		m.UnconfirmedSkipped,
		m.EvalDuration,
		m.Streams,
		m.SignalsEmitted,
		m.SignalsSuppressed,
		m.FanoutDropsTotal,
		m.PublishRejected,
		m.BreakerState,
		m.WSClients,
		m.AlertFailures,
	)
	return m
}

// ObserveEvent records one evaluated bar.
func (m *Metrics) ObserveEvent(ev model.SignalEvent) {
	m.BarsProcessed.WithLabelValues(ev.Timeframe).Inc()
	for _, kind := range ev.Emission.Labels() {
		m.SignalsEmitted.WithLabelValues(kind).Inc()
	}
	if (ev.Flags.LBase || ev.Flags.LPlus) && !ev.Emission.L && !ev.Emission.LPlus {
		m.SignalsSuppressed.WithLabelValues("long").Inc()
	}
	if (ev.Flags.RBase || ev.Flags.RPlus) && !ev.Emission.R && !ev.Emission.RPlus {
		m.SignalsSuppressed.WithLabelValues("risk").Inc()
	}
}

// FanoutDrop returns an OnDrop callback for the fan-out bus.
func (m *Metrics) FanoutDrop(subscriberIdx int) {
	m.FanoutDropsTotal.WithLabelValues(strconv.Itoa(subscriberIdx)).Inc()
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	RedisLatencyMs float64   `json:"redis_latency_ms"`
	WarmupDone     bool      `json:"warmup_done"`
	LastBarTime    time.Time `json:"last_bar_time"`
	Streams        []string  `json:"streams"`
	LastCheckAt    time.Time `json:"last_check_at"`
	StartedAt      time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisConnected(v bool) {
	h.mu.Lock()
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetWarmupDone(v bool) {
	h.mu.Lock()
	h.WarmupDone = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastBarTime(t time.Time) {
	h.mu.Lock()
	h.LastBarTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetStreams(streams []string) {
	h.mu.Lock()
	h.Streams = streams
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker pings Redis every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckRedis(probeCtx, rdb)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. The service is healthy once the
// warm-up replay finished and Redis answers.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	switch {
	case !h.RedisConnected:
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	case !h.WarmupDone:
		overallStatus = "warming_up"
		httpCode = http.StatusServiceUnavailable
	}

	barAge := ""
	if !h.LastBarTime.IsZero() {
		barAge = time.Since(h.LastBarTime).Round(time.Second).String()
	}

	status := struct {
		Status         string   `json:"status"`
		Uptime         string   `json:"uptime"`
		RedisConnected bool     `json:"redis_connected"`
		RedisLatencyMs float64  `json:"redis_latency_ms"`
		WarmupDone     bool     `json:"warmup_done"`
		LastBarTime    string   `json:"last_bar_time"`
		BarAge         string   `json:"bar_age"`
		Streams        []string `json:"streams"`
		LastCheckAt    string   `json:"last_check_at"`
	}{
		Status:         overallStatus,
		Uptime:         time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected: h.RedisConnected,
		RedisLatencyMs: h.RedisLatencyMs,
		WarmupDone:     h.WarmupDone,
		LastBarTime:    h.LastBarTime.Format(time.RFC3339),
		BarAge:         barAge,
		Streams:        h.Streams,
		LastCheckAt:    h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz. Extra
// handlers (the websocket endpoint) can be mounted with Handle before Start.
type Server struct {
	addr string
	mux  *http.ServeMux
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		mux:  mux,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Handle mounts an extra handler.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.mux }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
