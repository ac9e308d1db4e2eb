package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the suggestion module. Strategy
// failures are tracked separately because they are swallowed by the
// engine and would otherwise be invisible.
type Metrics struct {
	StrategyDuration *prometheus.HistogramVec
	StrategyFailures *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	CandidatesServed prometheus.Histogram
}

// New creates a Metrics instance with all suggestion module metrics registered.
func New() *Metrics {
	return &Metrics{
		StrategyDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkup_suggestion_strategy_duration_seconds",
			Help:    "Duration of a single strategy's generate call",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"strategy"}),
		StrategyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "linkup_suggestion_strategy_failures_total",
			Help: "Strategy errors and timeouts skipped by the engine",
		}, []string{"strategy"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkup_suggestion_request_duration_seconds",
			Help:    "End-to-end duration of a ranked suggestion request",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		CandidatesServed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkup_suggestion_candidates_served",
			Help:    "Number of candidates returned per request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
	}
}

// ObserveStrategy records one strategy run.
func (m *Metrics) ObserveStrategy(strategy string, start time.Time) {
	m.StrategyDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
}

// IncrementStrategyFailure records a skipped strategy failure.
func (m *Metrics) IncrementStrategyFailure(strategy string) {
	m.StrategyFailures.WithLabelValues(strategy).Inc()
}

// ObserveRequest records one completed suggestion request.
func (m *Metrics) ObserveRequest(start time.Time, served int) {
	m.RequestDuration.Observe(time.Since(start).Seconds())
	m.CandidatesServed.Observe(float64(served))
}
