package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// BreakerMetrics holds breaker collectors. A nil *BreakerMetrics records nothing.
type BreakerMetrics struct {
	State       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
}

// NewBreakerMetrics builds and registers breaker collectors on reg, reusing
// collectors that are already registered.
func NewBreakerMetrics(namespace string, reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &BreakerMetrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"}),
	}
	if err := reg.Register(m.State); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			m.State = are.ExistingCollector.(*prometheus.GaugeVec)
		}
	}
	if err := reg.Register(m.Transitions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			m.Transitions = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return m
}

func (m *BreakerMetrics) state(target string, s State) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(target).Set(s.gauge())
}

func (m *BreakerMetrics) transition(target string, from, to State) {
	if m == nil {
		return
	}
	m.state(target, to)
	m.Transitions.WithLabelValues(target, from.String(), to.String()).Inc()
}
