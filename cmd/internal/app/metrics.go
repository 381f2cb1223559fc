package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics holds the request-level Prometheus collectors. Routes are
// reduced to their first path segment so cardinality cannot grow with ids.
type HTTPMetrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics builds a registry with the standard process collectors
// plus tube's request metrics.
func NewHTTPMetrics() *HTTPMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &HTTPMetrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tube_http_requests_total",
			Help: "HTTP requests by method, route family, and status class.",
		}, []string{"method", "route", "class"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tube_http_request_duration_seconds",
			Help:    "HTTP request latency by route family.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "tube_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
	}
}

// Registerer exposes the underlying registry for other subsystems' metrics.
func (m *HTTPMetrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Handler returns the /metrics scrape endpoint.
func (m *HTTPMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithHTTPMetrics wraps an http.Handler and records request metrics.
func WithHTTPMetrics(next http.Handler, m *HTTPMetrics) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}
		next.ServeHTTP(lrw, r)

		route := routeFamily(r.URL.Path)
		m.requests.WithLabelValues(r.Method, route, statusClass(lrw.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeFamily reduces a request path to its first segment: "/videos/abc"
// becomes "/videos", "/" stays "/".
func routeFamily(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "/"
	}
	seg, _, _ := strings.Cut(path, "/")
	return "/" + seg
}
