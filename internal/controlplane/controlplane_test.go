package controlplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_AddedSetsProgressingAndCarriesDesiredState(t *testing.T) {
	c := New()
	event := ResourceEvent{
		Type: EventAdded, Name: "rule-engine", Namespace: "compliance",
		Resource: map[string]interface{}{
			"replicas":   float64(3),
			"deployment": map[string]interface{}{"image": "rule-engine:v1"},
		},
	}

	desired, status := c.Reconcile(event)
	assert.Equal(t, PhaseProgressing, status.Phase)
	assert.Equal(t, 3, status.DesiredReplicas)
	require.NotNil(t, desired.Deployment)
	assert.Equal(t, "rule-engine:v1", desired.Deployment["image"])
}

func TestReconcile_ModifiedWithNoReplicaChangeIsReady(t *testing.T) {
	c := New()
	old := map[string]interface{}{"replicas": float64(2)}
	event := ResourceEvent{
		Type: EventModified, Name: "rule-engine", Namespace: "compliance",
		Resource:    map[string]interface{}{"replicas": float64(2)},
		OldResource: old,
	}

	_, status := c.Reconcile(event)
	assert.Equal(t, PhaseReady, status.Phase)
	assert.Equal(t, "NoChangeDetected", status.Conditions[0].Reason)
}

func TestReconcile_DeletedClearsTrackedReplicas(t *testing.T) {
	c := New()
	c.Reconcile(ResourceEvent{Type: EventAdded, Name: "r1", Namespace: "ns", Resource: map[string]interface{}{"replicas": float64(5)}})

	_, status := c.Reconcile(ResourceEvent{Type: EventDeleted, Name: "r1", Namespace: "ns"})
	assert.Equal(t, PhasePending, status.Phase)

	observed := c.ObserveReadyReplicas("ns", "r1", 0, PerformanceMetrics{})
	assert.Equal(t, 0, observed.DesiredReplicas)
}

func TestReconcile_UnknownEventTypeIsFailed(t *testing.T) {
	c := New()
	_, status := c.Reconcile(ResourceEvent{Type: EventType("WEIRD"), Name: "r1", Namespace: "ns"})
	assert.Equal(t, PhaseFailed, status.Phase)
}

func TestObserveReadyReplicas_PhaseTransitions(t *testing.T) {
	c := New()
	c.Reconcile(ResourceEvent{Type: EventAdded, Name: "r1", Namespace: "ns", Resource: map[string]interface{}{"replicas": float64(3)}})

	degraded := c.ObserveReadyReplicas("ns", "r1", 0, PerformanceMetrics{})
	assert.Equal(t, PhaseDegraded, degraded.Phase)

	ready := c.ObserveReadyReplicas("ns", "r1", 3, PerformanceMetrics{CPUUtilization: 0.5})
	assert.Equal(t, PhaseReady, ready.Phase)
	assert.Equal(t, ConditionTrue, ready.Conditions[0].Status)
}
