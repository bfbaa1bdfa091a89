package rush

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the polling loop. Optional: a nil *Metrics disables
// instrumentation entirely.
type Metrics struct {
	pollsTotal        prometheus.Counter
	pollFailuresTotal prometheus.Counter
	trackingLostTotal prometheus.Counter
	confirmedTotal    prometheus.Counter
}

// NewMetrics registers the delivery tracking metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		pollsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rush_delivery_polls_total",
			Help: "Total number of delivery status polls issued",
		}),
		pollFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rush_delivery_poll_failures_total",
			Help: "Total number of delivery status polls that failed",
		}),
		trackingLostTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rush_delivery_tracking_lost_total",
			Help: "Total number of deliveries abandoned after exhausting the polling failure budget",
		}),
		confirmedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rush_deliveries_confirmed_total",
			Help: "Total number of deliveries confirmed",
		}),
	}
}

func (m *Metrics) recordPoll() {
	if m != nil {
		m.pollsTotal.Inc()
	}
}

func (m *Metrics) recordPollFailure() {
	if m != nil {
		m.pollFailuresTotal.Inc()
	}
}

func (m *Metrics) recordTrackingLost() {
	if m != nil {
		m.trackingLostTotal.Inc()
	}
}

func (m *Metrics) recordConfirmed() {
	if m != nil {
		m.confirmedTotal.Inc()
	}
}
