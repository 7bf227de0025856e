// Package metrics exposes Prometheus collectors for the capture service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	capturesDispatchedTotal    *prometheus.CounterVec
	capturesResolvedTotal      *prometheus.CounterVec
	workerBacklog              *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		capturesDispatchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webroll_captures_dispatched_total",
				Help: "Total number of captures dispatched, labeled by worker.",
			},
			[]string{"worker"},
		)

		capturesResolvedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webroll_captures_resolved_total",
				Help: "Total number of captures resolved, labeled by final status.",
			},
			[]string{"status"},
		)

		workerBacklog = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webroll_worker_backlog",
				Help: "Number of tasks currently queued per worker.",
			},
			[]string{"worker"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDispatch increments the dispatch counter for a worker.
func ObserveDispatch(worker string) {
	if capturesDispatchedTotal == nil {
		return
	}
	capturesDispatchedTotal.WithLabelValues(worker).Inc()
}

// ObserveCapture increments the resolved captures counter for the status.
func ObserveCapture(status string) {
	if capturesResolvedTotal == nil {
		return
	}
	capturesResolvedTotal.WithLabelValues(status).Inc()
}

// SetWorkerBacklog records the current backlog snapshot for a worker.
func SetWorkerBacklog(worker string, n int) {
	if workerBacklog == nil {
		return
	}
	workerBacklog.WithLabelValues(worker).Set(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
