// Package metrics exposes Prometheus collectors for the runtime. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reactivegraph"

// Metrics holds the runtime collectors.
type Metrics struct {
	behavioursAttached *prometheus.CounterVec
	behavioursDetached *prometheus.CounterVec
	creationFailures   *prometheus.CounterVec
	transitionFailures *prometheus.CounterVec
	populationWalk     *prometheus.HistogramVec
	truncations        *prometheus.CounterVec
	liveInstances      *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		behavioursAttached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "attached_total",
				Help:      "Behaviours attached to instances.",
			},
			[]string{"scope"},
		),
		behavioursDetached: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "detached_total",
				Help:      "Behaviours removed from instances.",
			},
			[]string{"scope"},
		),
		creationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "creation_failures_total",
				Help:      "Behaviour creations that failed, by reason.",
			},
			[]string{"scope", "reason"},
		),
		transitionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "transition_failures_total",
				Help:      "Failed behaviour state transitions.",
			},
			[]string{"scope", "transition"},
		),
		populationWalk: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "behaviour",
				Name:      "population_walk_duration_seconds",
				Help:      "Duration of retroactive apply and remove walks.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"scope", "operation"},
		),
		truncations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "property",
				Name:      "propagation_truncations_total",
				Help:      "Property writes not propagated because the depth limit was reached.",
			},
			[]string{"kind"},
		),
		liveInstances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "instance",
				Name:      "live",
				Help:      "Registered reactive instances.",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.behavioursAttached,
			m.behavioursDetached,
			m.creationFailures,
			m.transitionFailures,
			m.populationWalk,
			m.truncations,
			m.liveInstances,
		)
	}
	return m
}

func (m *Metrics) BehaviourAttached(scope string) {
	if m == nil {
		return
	}
	m.behavioursAttached.WithLabelValues(scope).Inc()
}

func (m *Metrics) BehaviourDetached(scope string) {
	if m == nil {
		return
	}
	m.behavioursDetached.WithLabelValues(scope).Inc()
}

// CreationFailed counts a failed behaviour creation. reason is
// "already_applied" or "missing_dependency".
func (m *Metrics) CreationFailed(scope, reason string) {
	if m == nil {
		return
	}
	m.creationFailures.WithLabelValues(scope, reason).Inc()
}

func (m *Metrics) TransitionFailed(scope, transition string) {
	if m == nil {
		return
	}
	m.transitionFailures.WithLabelValues(scope, transition).Inc()
}

// ObservePopulationWalk records the duration of a register or unregister walk.
func (m *Metrics) ObservePopulationWalk(scope, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.populationWalk.WithLabelValues(scope, operation).Observe(d.Seconds())
}

func (m *Metrics) PropagationTruncated(kind string) {
	if m == nil {
		return
	}
	m.truncations.WithLabelValues(kind).Inc()
}

func (m *Metrics) InstanceAdded(kind string) {
	if m == nil {
		return
	}
	m.liveInstances.WithLabelValues(kind).Inc()
}

func (m *Metrics) InstanceRemoved(kind string) {
	if m == nil {
		return
	}
	m.liveInstances.WithLabelValues(kind).Dec()
}
