package metrics

import "github.com/prometheus/client_golang/prometheus"

// Summarization Prometheus metrics.
var (
	SummarizationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "summarization_requests_total",
			Help:      "Total number of summarization requests",
		},
		[]string{"provider", "model", "status"},
	)

	SummarizationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dietwatch",
			Name:      "summarization_request_duration_seconds",
			Help:      "Summarization request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	SummarizationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "summarization_tokens_total",
			Help:      "Total summarization tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	SummarizationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "summarization_errors_total",
			Help:      "Total summarization errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	SummarizationBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dietwatch",
			Name:      "summarization_budget_tokens_remaining",
			Help:      "Summarization tokens left in the current budget period (-1 = unlimited)",
		},
		[]string{"provider", "period"},
	)
)

var summarizerMetricsRegistered bool

// RegisterSummarizerMetrics registers summarization metrics. Must be called once from main.
func RegisterSummarizerMetrics() {
	if summarizerMetricsRegistered {
		return
	}
	prometheus.MustRegister(SummarizationRequestsTotal)
	prometheus.MustRegister(SummarizationRequestDuration)
	prometheus.MustRegister(SummarizationTokensTotal)
	prometheus.MustRegister(SummarizationErrorsTotal)
	prometheus.MustRegister(SummarizationBudgetTokensRemaining)
	summarizerMetricsRegistered = true
}
