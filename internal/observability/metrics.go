// Package observability exposes Prometheus metrics for the HTTP layer and
// the stock workflow. A nil *Metrics is valid and records nothing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry and every collector the service updates.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
	movedQuantity   *prometheus.CounterVec
	requestEvents   *prometheus.CounterVec
	rejectedLines   *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relief_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_stock_movements_total",
		Help: "Committed transaction log entries by direction.",
	}, []string{"direction"})
	moved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_stock_moved_quantity_total",
		Help: "Units moved by committed transaction log entries.",
	}, []string{"direction"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_requests_total",
		Help: "Shelter request lifecycle events (created, approved, rejected).",
	}, []string{"event"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relief_batch_lines_failed_total",
		Help: "Receive and issue lines skipped because of an error.",
	}, []string{"operation"})
	registry.MustRegister(
		requests, duration, movements, moved, events, rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movements:       movements,
		movedQuantity:   moved,
		requestEvents:   events,
		rejectedLines:   rejected,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency of every HTTP request by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StockMoved counts one committed log entry.
func (m *Metrics) StockMoved(direction string, quantity int) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(direction).Inc()
	m.movedQuantity.WithLabelValues(direction).Add(float64(quantity))
}

// RequestEvent counts a request lifecycle event.
func (m *Metrics) RequestEvent(event string) {
	if m == nil {
		return
	}
	m.requestEvents.WithLabelValues(event).Inc()
}

// LinesFailed counts batch lines that were skipped.
func (m *Metrics) LinesFailed(operation string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rejectedLines.WithLabelValues(operation).Add(float64(n))
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
