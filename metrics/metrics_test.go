package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BehaviourAttached("entity")
	m.BehaviourAttached("entity")
	m.BehaviourDetached("entity")
	m.CreationFailed("entity_component", "already_applied")
	m.TransitionFailed("relation", "connect")
	m.PropagationTruncated("entity")
	m.InstanceAdded("entity")
	m.InstanceAdded("entity")
	m.InstanceRemoved("entity")
	m.ObservePopulationWalk("entity", "register", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.behavioursAttached.WithLabelValues("entity")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.behavioursDetached.WithLabelValues("entity")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.creationFailures.WithLabelValues("entity_component", "already_applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.transitionFailures.WithLabelValues("relation", "connect")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.truncations.WithLabelValues("entity")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.liveInstances.WithLabelValues("entity")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BehaviourAttached("entity")
		m.BehaviourDetached("entity")
		m.CreationFailed("entity", "missing_dependency")
		m.TransitionFailed("entity", "disconnect")
		m.ObservePopulationWalk("entity", "unregister", time.Second)
		m.PropagationTruncated("relation")
		m.InstanceAdded("relation")
		m.InstanceRemoved("relation")
	})
}

func TestNew_Unregistered(t *testing.T) {
	m := New(nil)
	m.BehaviourAttached("relation")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.behavioursAttached.WithLabelValues("relation")))
}
