package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the connection module. Lifecycle
// transitions are labelled by outcome so dashboards can plot accept rates
// against rejections and blocks.
type Metrics struct {
	RequestsSent        prometheus.Counter
	Transitions         *prometheus.CounterVec
	SendRequestDuration prometheus.Histogram
	TransitionDuration  prometheus.Histogram
}

// New creates a Metrics instance with all connection module metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "linkup_connection_requests_sent_total",
			Help: "Total number of connection requests created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "linkup_connection_transitions_total",
			Help: "Total lifecycle transitions by outcome",
		}, []string{"outcome"}),
		SendRequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkup_connection_send_request_duration_seconds",
			Help:    "Duration of SendRequest operations including the directory check",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkup_connection_transition_duration_seconds",
			Help:    "Duration of accept/reject/block/cancel/remove operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementRequestSent records a successful connection request creation.
func (m *Metrics) IncrementRequestSent() {
	m.RequestsSent.Inc()
}

// IncrementTransition records a completed lifecycle transition.
// outcome is one of accepted, rejected, blocked, cancelled, removed.
func (m *Metrics) IncrementTransition(outcome string) {
	m.Transitions.WithLabelValues(outcome).Inc()
}

// ObserveSendRequest records the duration of a SendRequest operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSendRequest(start time.Time) {
	m.SendRequestDuration.Observe(time.Since(start).Seconds())
}

// ObserveTransition records the duration of a transition operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}
