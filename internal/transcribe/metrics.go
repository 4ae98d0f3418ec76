package transcribe

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds transcription gateway metrics.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	durationSecs   prometheus.Histogram
}

// NewMetrics creates and registers gateway metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesvoice",
			Subsystem: "transcription",
			Name:      "requests_total",
			Help:      "Transcription requests by result status (success, fallback, error).",
		}, []string{"status"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesvoice",
			Subsystem: "transcription",
			Name:      "fallbacks_total",
			Help:      "Fallback transcripts served, by remote failure reason class.",
		}, []string{"reason"}),
		durationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salesvoice",
			Subsystem: "transcription",
			Name:      "request_duration_seconds",
			Help:      "Remote transcription call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.fallbacksTotal, m.durationSecs)
	}
	return m
}

func (m *Metrics) observe(status Status, reason string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(string(status)).Inc()
	if status == StatusFallback {
		m.fallbacksTotal.WithLabelValues(reason).Inc()
	}
	m.durationSecs.Observe(seconds)
}
