// Package metrics exposes advisor activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ETFPal/internal/model"
)

// Metrics holds all Prometheus metrics for the advisor.
type Metrics struct {
	AdviceRuns    *prometheus.CounterVec   // labels: trigger, outcome
	FetchDuration *prometheus.HistogramVec // labels: provider, cadence
	FetchErrors   *prometheus.CounterVec   // labels: provider, cadence
	LedgerAppends *prometheus.CounterVec   // labels: outcome
	Notifications *prometheus.CounterVec   // labels: outcome

	DownStreak       *prometheus.GaugeVec // labels: cadence
	UpMonths         prometheus.Gauge
	Percentage       prometheus.Gauge
	Amount           prometheus.Gauge
	NextInvestmentTS prometheus.Gauge
}

// New creates the metrics and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AdviceRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etfpal_advice_runs_total",
			Help: "Advice evaluations by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etfpal_fetch_duration_seconds",
			Help:    "Price series fetch latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "cadence"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etfpal_fetch_errors_total",
			Help: "Failed price series fetches",
		}, []string{"provider", "cadence"}),
		LedgerAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etfpal_ledger_appends_total",
			Help: "Investment events appended to the ledger",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etfpal_notifications_total",
			Help: "Telegram messages sent",
		}, []string{"outcome"}),

		DownStreak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "etfpal_down_streak_periods",
			Help: "Consecutive down periods (minimum across instruments)",
		}, []string{"cadence"}),
		UpMonths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfpal_up_streak_months",
			Help: "Consecutive months both instruments rose",
		}),
		Percentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfpal_investment_percentage",
			Help: "Latest recommended investment percentage",
		}),
		Amount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfpal_investment_amount",
			Help: "Latest recommended investment amount",
		}),
		NextInvestmentTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfpal_next_investment_timestamp_seconds",
			Help: "Unix time of the next scheduled investment day (00:00 UTC of that date)",
		}),
	}

	reg.MustRegister(
		m.AdviceRuns,
		m.FetchDuration,
		m.FetchErrors,
		m.LedgerAppends,
		m.Notifications,
		m.DownStreak,
		m.UpMonths,
		m.Percentage,
		m.Amount,
		m.NextInvestmentTS,
	)
	return m
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(provider string, cadence model.Cadence, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(provider, string(cadence)).Observe(took.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(provider, string(cadence)).Inc()
	}
}

// ObserveAdvice publishes the gauges of a finished evaluation.
func (m *Metrics) ObserveAdvice(a *model.Advice, next time.Time) {
	if m == nil || a == nil {
		return
	}
	m.AdviceRuns.WithLabelValues(string(a.TriggerType), "ok").Inc()
	m.DownStreak.WithLabelValues(string(model.CadenceWeekly)).Set(float64(a.Metrics.DownWeeks))
	m.DownStreak.WithLabelValues(string(model.CadenceMonthly)).Set(float64(a.Metrics.DownMonths))
	m.UpMonths.Set(float64(a.Metrics.UpMonths))
	m.Percentage.Set(a.Percentage.InexactFloat64())
	m.Amount.Set(a.Amount.InexactFloat64())
	if !next.IsZero() {
		m.NextInvestmentTS.Set(float64(next.Unix()))
	}
}

// AdviceFailed counts a failed evaluation.
func (m *Metrics) AdviceFailed(trigger model.TriggerType) {
	if m == nil {
		return
	}
	m.AdviceRuns.WithLabelValues(string(trigger), "error").Inc()
}

// ObserveAppend counts a ledger append.
func (m *Metrics) ObserveAppend(err error) {
	if m == nil {
		return
	}
	m.LedgerAppends.WithLabelValues(outcome(err)).Inc()
}

// ObserveNotify counts a Telegram delivery.
func (m *Metrics) ObserveNotify(err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Health tracks the last successful advice run for /healthz.
type Health struct {
	mu          sync.RWMutex
	StartedAt   time.Time
	LastAdvice  time.Time
	LastError   string
	LedgerReady bool
}

func NewHealth() *Health {
	return &Health{StartedAt: time.Now()}
}

func (h *Health) AdviceOK(at time.Time) {
	h.mu.Lock()
	h.LastAdvice = at
	h.LastError = ""
	h.mu.Unlock()
}

func (h *Health) AdviceError(err error) {
	h.mu.Lock()
	h.LastError = err.Error()
	h.mu.Unlock()
}

func (h *Health) SetLedgerReady(v bool) {
	h.mu.Lock()
	h.LedgerReady = v
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	switch {
	case !h.LedgerReady:
		status, code = "unhealthy", http.StatusServiceUnavailable
	case h.LastError != "":
		status = "degraded"
	}

	lastAdvice := ""
	if !h.LastAdvice.IsZero() {
		lastAdvice = h.LastAdvice.Format(time.RFC3339)
	}

	body := struct {
		Status      string `json:"status"`
		Uptime      string `json:"uptime"`
		LastAdvice  string `json:"last_advice"`
		LastError   string `json:"last_error,omitempty"`
		LedgerReady bool   `json:"ledger_ready"`
	}{
		Status:      status,
		Uptime:      time.Since(h.StartedAt).Round(time.Second).String(),
		LastAdvice:  lastAdvice,
		LastError:   h.LastError,
		LedgerReady: h.LedgerReady,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server backed by gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, health *Health) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
