package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the HTTP server and the
// analysis pipeline. It owns its own registry so tests can create isolated
// collectors.
type Metrics struct {
	reg *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	requestsInFlight prometheus.Gauge

	AnalysesTotal     prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	SegmentsProcessed prometheus.Counter
	TripsProduced     prometheus.Counter
}

// NewMetrics creates a Metrics instance backed by a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tripscope_http_request_duration_seconds",
			Help:    "Duration of HTTP server requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripscope_http_requests_total",
			Help: "Total HTTP server requests.",
		}, []string{"method", "path", "status"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripscope_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripscope_analyses_total",
			Help: "Total analysis runs.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripscope_analysis_duration_seconds",
			Help:    "Duration of full analysis runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		SegmentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripscope_segments_processed_total",
			Help: "Total timeline segments processed.",
		}),
		TripsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripscope_trips_produced_total",
			Help: "Total trips produced by analysis runs.",
		}),
	}

	reg.MustRegister(
		m.requestDuration, m.requestTotal, m.requestsInFlight,
		m.AnalysesTotal, m.AnalysisDuration, m.SegmentsProcessed, m.TripsProduced,
	)

	return m
}

// Handler returns the /metrics endpoint handler for this collector.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that records metrics for each request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			labels := prometheus.Labels{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": strconv.Itoa(wrapped.statusCode),
			}
			m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
			m.requestTotal.With(labels).Inc()
		})
	}
}
