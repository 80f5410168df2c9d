package enrichment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// Metrics records the outcome and duration of every lookup.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the enrichment metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clientbook",
			Subsystem: "enrichment",
			Name:      "requests_total",
			Help:      "Number of enrichment lookups by lookup and outcome.",
		}, []string{"lookup", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clientbook",
			Subsystem: "enrichment",
			Name:      "request_duration_seconds",
			Help:      "Duration of enrichment lookups.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lookup"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Requests returns the request counter for the specified lookup and outcome.
func (m *Metrics) Requests(lookup Lookup, outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(string(lookup), outcome)
}

func (m *Metrics) observe(lookup Lookup, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = string(Category(err))
	}
	m.requests.WithLabelValues(string(lookup), outcome).Inc()
	m.duration.WithLabelValues(string(lookup)).Observe(elapsed.Seconds())
}
