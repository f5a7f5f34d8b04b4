package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	Events              *prometheus.CounterVec
	Actions             *prometheus.CounterVec
	Classifications     *prometheus.CounterVec
	ClassifierFallbacks prometheus.Counter
	Escalations         *prometheus.CounterVec
	Confidence          prometheus.Histogram
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concierge_events_total",
			Help: "Total webhook events by handling status.",
		}, []string{"status"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concierge_actions_total",
			Help: "Total processed inquiries by decided action.",
		}, []string{"action"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concierge_classifications_total",
			Help: "Total classifications by intent and source.",
		}, []string{"intent", "source"}),
		ClassifierFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "concierge_classifier_fallbacks_total",
			Help: "Total classifications that degraded to the heuristic after a backend failure.",
		}),
		Escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "concierge_escalations_total",
			Help: "Total escalations by reason code.",
		}, []string{"reason"}),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "concierge_confidence_score",
			Help:    "Final confidence scores of processed inquiries.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}),
	}

	reg.MustRegister(
		m.Events,
		m.Actions,
		m.Classifications,
		m.ClassifierFallbacks,
		m.Escalations,
		m.Confidence,
	)

	return m
}
