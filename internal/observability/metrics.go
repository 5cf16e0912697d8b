package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salescope_http_requests_total",
			Help: "HTTP requests by method, matched route pattern, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// Chat turns spend several seconds inside the language model, so the
	// buckets extend well past the stock 10s ceiling.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salescope_http_request_duration_seconds",
			Help:    "HTTP request latency by matched route pattern.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds)
}
