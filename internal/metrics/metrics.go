package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	registry *prometheus.Registry

	// Call metrics
	CallsTotal      *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	CallErrorsTotal *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec

	// MCP session metrics
	MCPSessionsTotal prometheus.Counter
	MCPSessionUp     prometheus.Gauge

	// Token metrics
	TokenExchangesTotal      prometheus.Counter
	TokenExchangeErrorsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Call metrics
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_calls_total",
				Help: "Total number of gateway calls",
			},
			[]string{"operation", "transport", "status"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_call_duration_seconds",
				Help:    "Duration of gateway calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "transport"},
		),
		CallErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_call_errors_total",
				Help: "Total number of failed gateway calls",
			},
			[]string{"operation", "error_kind"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_fallbacks_total",
				Help: "Total number of calls that fell back to the direct transport",
			},
			[]string{"operation", "error_kind"},
		),

		// MCP session metrics
		MCPSessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mcp_sessions_total",
				Help: "Total number of MCP sessions opened",
			},
		),
		MCPSessionUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcp_session_up",
				Help: "Whether an MCP session is currently ready (1) or not (0)",
			},
		),

		// Token metrics
		TokenExchangesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "token_exchanges_total",
				Help: "Total number of OAuth token exchanges",
			},
		),
		TokenExchangeErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "token_exchange_errors_total",
				Help: "Total number of failed OAuth token exchanges",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	// Call metrics
	m.registry.MustRegister(m.CallsTotal)
	m.registry.MustRegister(m.CallDuration)
	m.registry.MustRegister(m.CallErrorsTotal)
	m.registry.MustRegister(m.FallbacksTotal)

	// MCP session metrics
	m.registry.MustRegister(m.MCPSessionsTotal)
	m.registry.MustRegister(m.MCPSessionUp)

	// Token metrics
	m.registry.MustRegister(m.TokenExchangesTotal)
	m.registry.MustRegister(m.TokenExchangeErrorsTotal)
}

// RecordCall records one completed gateway call
func (m *Metrics) RecordCall(operation, transport, status string, duration time.Duration) {
	m.CallsTotal.WithLabelValues(operation, transport, status).Inc()
	m.CallDuration.WithLabelValues(operation, transport).Observe(duration.Seconds())
}

// RecordCallError records one failed gateway call by error kind
func (m *Metrics) RecordCallError(operation, errorKind string) {
	m.CallErrorsTotal.WithLabelValues(operation, errorKind).Inc()
}

// RecordFallback records one protocol-to-direct fallback
func (m *Metrics) RecordFallback(operation, errorKind string) {
	m.FallbacksTotal.WithLabelValues(operation, errorKind).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
