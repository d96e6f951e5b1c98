// README: Prometheus collectors shared by dialogue, gateway and provider code.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tripwise"

// Collectors groups the service metrics. A nil *Collectors is valid and records nothing,
// which keeps unit tests free of registry setup.
type Collectors struct {
	dialogueTurns    *prometheus.CounterVec
	contextsSwept    prometheus.Counter
	liveContexts     prometheus.Gauge
	gatewayCalls     *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		dialogueTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_turns_total",
			Help:      "Dialogue turns processed, by matched rule.",
		}, []string{"rule"}),
		contextsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contexts_swept_total",
			Help:      "Conversation contexts removed by expiry sweeps.",
		}),
		liveContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_contexts",
			Help:      "Conversation contexts held after the last sweep.",
		}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Enhancement gateway calls, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Data provider requests, by search kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(c.dialogueTurns, c.contextsSwept, c.liveContexts, c.gatewayCalls, c.providerRequests)
	return c
}

func (c *Collectors) ObserveTurn(rule string) {
	if c == nil {
		return
	}
	c.dialogueTurns.WithLabelValues(rule).Inc()
}

func (c *Collectors) ObserveSweep(removed, remaining int) {
	if c == nil {
		return
	}
	c.contextsSwept.Add(float64(removed))
	c.liveContexts.Set(float64(remaining))
}

func (c *Collectors) ObserveGateway(operation string, err error) {
	if c == nil {
		return
	}
	c.gatewayCalls.WithLabelValues(operation, outcome(err)).Inc()
}

func (c *Collectors) ObserveProvider(kind string, err error) {
	if c == nil {
		return
	}
	c.providerRequests.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
