package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"circulight/internal/validation/models"
)

// Metrics provides observability for the validation module.
type Metrics struct {
	// Classified records by outcome code
	Outcomes *prometheus.CounterVec

	// Composite score of each record's best match
	MatchScore prometheus.Histogram

	// Full batch latency including registry load and publishing
	BatchDuration prometheus.Histogram

	// Results that could not be handed to the publisher
	PublishFailures prometheus.Counter

	// Registry snapshot load latency
	RegistryLoadDuration prometheus.Histogram
}

// New creates a Metrics instance registered with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a Metrics instance registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "circulight_validation_outcomes_total",
			Help: "Total validated records by outcome code",
		}, []string{"code"}),

		MatchScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "circulight_validation_match_score",
			Help:    "Composite score of the best registry match per record",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}),

		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "circulight_validation_batch_duration_seconds",
			Help:    "Duration of a full validation batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "circulight_validation_publish_failures_total",
			Help: "Total results that failed to publish",
		}),

		RegistryLoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "circulight_registry_load_duration_seconds",
			Help:    "Duration of loading a registry snapshot",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveResult records one classified record.
func (m *Metrics) ObserveResult(r models.Result) {
	if m != nil {
		m.Outcomes.WithLabelValues(string(r.Code)).Inc()
		m.MatchScore.Observe(r.ConfidenceScore)
	}
}

// ObserveBatchDuration records the total batch duration.
func (m *Metrics) ObserveBatchDuration(d time.Duration) {
	if m != nil {
		m.BatchDuration.Observe(d.Seconds())
	}
}

// IncrementPublishFailures counts one failed publish.
func (m *Metrics) IncrementPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// ObserveRegistryLoad records the duration of a registry load.
func (m *Metrics) ObserveRegistryLoad(d time.Duration) {
	if m != nil {
		m.RegistryLoadDuration.Observe(d.Seconds())
	}
}
