package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roomfurni"

// Metrics holds the Prometheus collectors for the furni engine.
// It satisfies furniview.Recorder and operation.Recorder.
type Metrics struct {
	eventsTotal     *prometheus.CounterVec
	rebuildsTotal   *prometheus.CounterVec
	items           prometheus.Gauge
	stacks          prometheus.Gauge
	operationsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
//
// Precondition: reg must be non-nil and must not already hold these collectors.
// Postcondition: Returns a Metrics whose collectors are registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "room_events_total",
				Help:      "Room events applied to the furni cache",
			},
			[]string{"event"},
		),
		rebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "view_rebuilds_total",
				Help:      "Full rebuilds of a furni view",
			},
			[]string{"view"},
		),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "Furni items currently cached",
		}),
		stacks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stacks",
			Help:      "Furni stacks currently cached",
		}),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Finished furni operations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	reg.MustRegister(m.eventsTotal, m.rebuildsTotal, m.items, m.stacks, m.operationsTotal)
	return m
}

// EventHandled counts one applied room event.
func (m *Metrics) EventHandled(event string) {
	m.eventsTotal.WithLabelValues(event).Inc()
}

// ViewRebuilt counts one full view rebuild.
func (m *Metrics) ViewRebuilt(view string) {
	m.rebuildsTotal.WithLabelValues(view).Inc()
}

// Counts sets the cached item and stack gauges.
func (m *Metrics) Counts(items, stacks int) {
	m.items.Set(float64(items))
	m.stacks.Set(float64(stacks))
}

// OperationFinished counts one finished operation.
func (m *Metrics) OperationFinished(kind, outcome string) {
	m.operationsTotal.WithLabelValues(kind, outcome).Inc()
}
