package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chatRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_chat_requests_total",
			Help: "Total number of chat requests answered.",
		},
	)
	chatLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salescope_chat_latency_ms",
			Help:    "End-to-end chat request latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 20000, 60000},
		},
	)
	llmCallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_llm_calls_total",
			Help: "Total number of model calls made while answering chat requests.",
		},
	)
	groundingFollowupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salescope_grounding_followups_total",
			Help: "Total number of answers rewritten because they cited no query value.",
		},
	)
	chartsBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salescope_charts_built_total",
			Help: "Total number of charts returned by chart type.",
		},
		[]string{"chart_type"},
	)
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salescope_warehouse_queries_total",
			Help: "Total number of warehouse queries by outcome.",
		},
		[]string{"outcome"},
	)
	warehouseQueryDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salescope_warehouse_query_duration_ms",
			Help:    "Warehouse query duration in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatRequestsTotal,
		chatLatencyMs,
		llmCallsTotal,
		groundingFollowupsTotal,
		chartsBuiltTotal,
		warehouseQueriesTotal,
		warehouseQueryDurationMs,
	)
}

func ObserveChatExchange(llmCalls, rowCount int, chartType string, grounded bool, elapsed time.Duration) {
	chatRequestsTotal.Inc()
	if llmCalls > 0 {
		llmCallsTotal.Add(float64(llmCalls))
	}
	if chartType != "" {
		chartsBuiltTotal.WithLabelValues(chartType).Inc()
	}
	if rowCount > 0 && !grounded {
		groundingFollowupsTotal.Inc()
	}
	chatLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveWarehouseQuery(elapsed time.Duration, failed bool) {
	outcome := "completed"
	if failed {
		outcome = "failed"
	}
	warehouseQueriesTotal.WithLabelValues(outcome).Inc()
	warehouseQueryDurationMs.Observe(float64(elapsed.Milliseconds()))
}
