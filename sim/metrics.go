package sim

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics bundles the Prometheus instruments for one simulation run. Each
// run owns its private registry so parameter sweeps can build many runs in
// one process without collector collisions.
//
// All Inc/Set helpers are nil-receiver safe so components can run unmetered.
type Metrics struct {
	registry *prometheus.Registry

	eventsDispatched   prometheus.Counter
	eventsCancelled    prometheus.Counter
	indications        prometheus.Counter
	policyAccepted     prometheus.Counter
	policyRejected     prometheus.Counter
	controlActions     prometheus.Counter
	controlRejected    prometheus.Counter
	registeredEntities prometheus.Gauge
	activeSubs         prometheus.Gauge
	activePolicies     prometheus.Gauge
}

// NewMetrics creates a Metrics instance backed by a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		m.registry.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		m.registry.MustRegister(g)
		return g
	}

	m.eventsDispatched = factory("sim_events_dispatched_total", "Events dispatched by the kernel loop.")
	m.eventsCancelled = factory("sim_events_cancelled_total", "Events cancelled before dispatch.")
	m.indications = factory("e2_indications_total", "Indication messages delivered to the Near-RT RIC.")
	m.policyAccepted = factory("a1_policy_ops_accepted_total", "Policy operations acknowledged as applied.")
	m.policyRejected = factory("a1_policy_ops_rejected_total", "Policy operations rejected by the protocol.")
	m.controlActions = factory("e2_control_actions_total", "Control actions applied by network functions.")
	m.controlRejected = factory("e2_control_rejected_total", "Control actions rejected as malformed or out of range.")
	m.registeredEntities = gauge("sim_registered_entities", "Entities currently registered with the scheduler.")
	m.activeSubs = gauge("e2_active_subscriptions", "Subscriptions currently in the active state.")
	m.activePolicies = gauge("a1_active_policies", "Policies currently in the active state.")
	return m
}

func (m *Metrics) IncEventsDispatched() {
	if m != nil {
		m.eventsDispatched.Inc()
	}
}

func (m *Metrics) IncEventsCancelled() {
	if m != nil {
		m.eventsCancelled.Inc()
	}
}

func (m *Metrics) IncIndications() {
	if m != nil {
		m.indications.Inc()
	}
}

func (m *Metrics) IncPolicyAccepted() {
	if m != nil {
		m.policyAccepted.Inc()
	}
}

func (m *Metrics) IncPolicyRejected() {
	if m != nil {
		m.policyRejected.Inc()
	}
}

func (m *Metrics) IncControlActions() {
	if m != nil {
		m.controlActions.Inc()
	}
}

func (m *Metrics) IncControlRejected() {
	if m != nil {
		m.controlRejected.Inc()
	}
}

func (m *Metrics) SetRegisteredEntities(n int) {
	if m != nil {
		m.registeredEntities.Set(float64(n))
	}
}

func (m *Metrics) SetActiveSubscriptions(n int) {
	if m != nil {
		m.activeSubs.Set(float64(n))
	}
}

func (m *Metrics) SetActivePolicies(n int) {
	if m != nil {
		m.activePolicies.Set(float64(n))
	}
}

// Handler returns an HTTP handler exposing this run's registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the run registry for programmatic scraping in tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Print writes a plain-text summary of all counters and gauges, in metric
// name order, for end-of-run reporting.
func (m *Metrics) Print() {
	if m == nil {
		return
	}
	families, err := m.registry.Gather()
	if err != nil {
		fmt.Printf("metrics gather failed: %v\n", err)
		return
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	fmt.Println("=== Simulation Metrics ===")
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			var v float64
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				v = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				v = metric.GetGauge().GetValue()
			default:
				continue
			}
			fmt.Printf("%-32s: %.0f\n", fam.GetName(), v)
		}
	}
}
