// Package metrics holds Prometheus instrumentation for Fundi.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for Fundi.
// Uses a custom registry, not the global default one.
type Collector struct {
	Registry *prometheus.Registry

	// Command execution metrics.
	CommandExecutionsTotal   *prometheus.CounterVec
	CommandExecutionDuration *prometheus.HistogramVec
	CommandTimeoutsTotal     *prometheus.CounterVec
	CommandRejectionsTotal   *prometheus.CounterVec

	// Tool invocation metrics.
	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	// System metrics.
	ActiveExecutions prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered on a custom
// prometheus.Registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	m := &Collector{
		Registry: reg,

		CommandExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundi",
			Subsystem: "command",
			Name:      "executions_total",
			Help:      "Total supervised command executions.",
		}, []string{"family", "status"}),

		CommandExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundi",
			Subsystem: "command",
			Name:      "execution_duration_seconds",
			Help:      "Supervised command execution duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 180, 600},
		}, []string{"family"}),

		CommandTimeoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundi",
			Subsystem: "command",
			Name:      "timeouts_total",
			Help:      "Total commands terminated by timeout.",
		}, []string{"family"}),

		CommandRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundi",
			Subsystem: "command",
			Name:      "rejections_total",
			Help:      "Total commands rejected before spawning.",
		}, []string{"family", "reason"}),

		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fundi",
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total tool invocations.",
		}, []string{"tool", "status"}),

		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fundi",
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),

		ActiveExecutions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fundi",
			Name:      "active_executions",
			Help:      "Number of currently running supervised commands.",
		}),
	}

	reg.MustRegister(
		m.CommandExecutionsTotal,
		m.CommandExecutionDuration,
		m.CommandTimeoutsTotal,
		m.CommandRejectionsTotal,
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.ActiveExecutions,
	)

	return m
}

// ObserveExecution records a completed supervised execution.
func (m *Collector) ObserveExecution(family, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutionsTotal.WithLabelValues(family, status).Inc()
	m.CommandExecutionDuration.WithLabelValues(family).Observe(elapsed.Seconds())
}

// ExecutionStarted marks a supervised command as in flight.
func (m *Collector) ExecutionStarted() {
	if m == nil {
		return
	}
	m.ActiveExecutions.Inc()
}

// ExecutionFinished marks a supervised command as no longer in flight.
func (m *Collector) ExecutionFinished() {
	if m == nil {
		return
	}
	m.ActiveExecutions.Dec()
}

// ObserveTimeout records a command terminated by timeout.
func (m *Collector) ObserveTimeout(family string) {
	if m == nil {
		return
	}
	m.CommandTimeoutsTotal.WithLabelValues(family).Inc()
}

// ObserveRejection records a command rejected before spawning.
func (m *Collector) ObserveRejection(family, reason string) {
	if m == nil {
		return
	}
	m.CommandRejectionsTotal.WithLabelValues(family, reason).Inc()
}

// ObserveToolCall records a completed tool invocation.
func (m *Collector) ObserveToolCall(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Serve exposes the registry over HTTP until ctx is canceled.
func (m *Collector) Serve(ctx context.Context, addr, path string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
