// Package metrics holds the Prometheus request metrics every service handler
// records.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Register registers c with the default registry. When an equal collector is
// already registered, that one is returned instead.
func Register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// HTTP is a service's request counter, latency histogram and latency summary.
type HTTP struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Summary  *prometheus.SummaryVec
}

// NewHTTP registers <service>_requests_total,
// <service>_request_duration_seconds and
// <service>_request_duration_summary.
func NewHTTP(service string) *HTTP {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: service + "_requests_total",
			Help: "Total number of requests to " + service,
		},
		[]string{"method", "endpoint", "status"},
	)

	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    service + "_request_duration_seconds",
			Help:    "Duration of " + service + " requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// p50, p90, p95, p99
	summary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: service + "_request_duration_summary",
			Help: "Summary of request durations with percentiles",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.001,
			},
			MaxAge: 10 * time.Minute,
		},
		[]string{"method", "endpoint"},
	)

	return &HTTP{
		Requests: Register(requests),
		Latency:  Register(latency),
		Summary:  Register(summary),
	}
}

// Observe records one finished request
func (m *HTTP) Observe(method, endpoint, status string, elapsed time.Duration) {
	seconds := elapsed.Seconds()
	m.Requests.WithLabelValues(method, endpoint, status).Inc()
	m.Latency.WithLabelValues(method, endpoint).Observe(seconds)
	m.Summary.WithLabelValues(method, endpoint).Observe(seconds)
}

// Wrap records every request served by next under endpoint
func (m *HTTP) Wrap(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.Observe(r.Method, endpoint, strconv.Itoa(rw.statusCode), time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
