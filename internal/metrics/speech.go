package metrics

import "github.com/prometheus/client_golang/prometheus"

// Speech API and digest Prometheus metrics.
var (
	SpeechRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "speech_requests_total",
			Help:      "Total number of speech API requests",
		},
		[]string{"status"}, // "ok" / "http_error" / "transport_error"
	)

	SpeechRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dietwatch",
			Name:      "speech_request_duration_seconds",
			Help:      "Speech API request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	SpeechRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "speech_records_total",
			Help:      "Total speech records received from the speech API",
		},
	)

	SpeechCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "speech_cache_total",
			Help:      "Speech response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DigestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dietwatch",
			Name:      "digests_total",
			Help:      "Digest runs by outcome",
		},
		[]string{"outcome"}, // "ok" / "empty" / "quota" / "summarization_error" / "error"
	)
)

var speechMetricsRegistered bool

// RegisterSpeechMetrics registers speech and digest metrics. Must be called once from main.
func RegisterSpeechMetrics() {
	if speechMetricsRegistered {
		return
	}
	prometheus.MustRegister(SpeechRequestsTotal)
	prometheus.MustRegister(SpeechRequestDuration)
	prometheus.MustRegister(SpeechRecordsTotal)
	prometheus.MustRegister(SpeechCacheTotal)
	prometheus.MustRegister(DigestsTotal)
	speechMetricsRegistered = true
}
