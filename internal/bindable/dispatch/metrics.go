package dispatch

import (
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds dispatch collectors.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewMetrics creates dispatch collectors and registers them on reg when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workspace",
			Subsystem: "bindable",
			Name:      "dispatch_total",
			Help:      "Bindable dispatches by bindable, action and outcome.",
		}, []string{"bindable", "action", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workspace",
			Subsystem: "bindable",
			Name:      "dispatch_duration_seconds",
			Help:      "Bindable dispatch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"bindable", "action"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.latency)
	}
	return m
}

func (m *Metrics) observe(name string, action bindable.Action, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(name, string(action), outcome).Inc()
	m.latency.WithLabelValues(name, string(action)).Observe(elapsed.Seconds())
}
