// Package controlplane is the Kubernetes-like control plane contract
// described by spec.md §6: the contract is the shape of resource events
// in and status/desired-state out, not the spec schema the external
// operator actually applies. This package treats every resource spec as
// opaque.
package controlplane

import "time"

// EventType is the kind of change a watch delivered.
type EventType string

const (
	EventAdded    EventType = "ADDED"
	EventModified EventType = "MODIFIED"
	EventDeleted  EventType = "DELETED"
)

// ResourceEvent is a single watch notification from the external
// Kubernetes-like orchestrator. Resource/OldResource are opaque: this
// package never inspects their contents beyond passing them through.
type ResourceEvent struct {
	Type         EventType
	Name         string
	Namespace    string
	Resource     map[string]interface{}
	OldResource  map[string]interface{}
}

// ConditionStatus mirrors the Kubernetes condition convention.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Condition is a single observed-state assertion with a reason.
type Condition struct {
	Type               string          `json:"type"`
	Status             ConditionStatus `json:"status"`
	Reason             string          `json:"reason,omitempty"`
	Message            string          `json:"message,omitempty"`
	LastTransitionTime time.Time       `json:"last_transition_time"`
}

// Phase is the coarse lifecycle state the controller reports.
type Phase string

const (
	PhasePending     Phase = "PENDING"
	PhaseProgressing Phase = "PROGRESSING"
	PhaseReady       Phase = "READY"
	PhaseDegraded    Phase = "DEGRADED"
	PhaseFailed      Phase = "FAILED"
)

// PerformanceMetrics is the scalar health data the status reports
// alongside replica/condition state.
type PerformanceMetrics struct {
	CPUUtilization    float64 `json:"cpu_utilization"`
	MemoryUtilization float64 `json:"memory_utilization"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	ErrorRate         float64 `json:"error_rate"`
}

// Status is the observed-state object the controller reports back for a
// resource.
type Status struct {
	Name               string             `json:"name"`
	Namespace          string             `json:"namespace"`
	Phase              Phase              `json:"phase"`
	DesiredReplicas    int                `json:"desired_replicas"`
	ReadyReplicas      int                `json:"ready_replicas"`
	Conditions         []Condition        `json:"conditions"`
	Performance        PerformanceMetrics `json:"performance"`
	ObservedAt         time.Time          `json:"observed_at"`
}

// DesiredState is the set of opaque specs the controller expects the
// external operator to apply. Each field is deliberately untyped beyond
// "a spec" — this package never interprets their contents.
type DesiredState struct {
	Deployment     map[string]interface{} `json:"deployment,omitempty"`
	Service        map[string]interface{} `json:"service,omitempty"`
	ConfigMap      map[string]interface{} `json:"config_map,omitempty"`
	Secret         map[string]interface{} `json:"secret,omitempty"`
	ServiceAccount map[string]interface{} `json:"service_account,omitempty"`
}

// Controller reconciles resource events into desired state plus status,
// tracking replica counts per resource across calls.
type Controller struct {
	replicas map[string]int
}

// New builds a Controller with no resources tracked yet.
func New() *Controller {
	return &Controller{replicas: make(map[string]int)}
}

func resourceKey(namespace, name string) string { return namespace + "/" + name }

// Reconcile is the pure-per-call core of the control plane contract: it
// derives desired state and a status object from one resource event. The
// only state it carries across calls is the last-known desired replica
// count per (namespace, name), needed to report ReadyReplicas deltas.
func (c *Controller) Reconcile(event ResourceEvent) (DesiredState, Status) {
	key := resourceKey(event.Namespace, event.Name)
	now := time.Now()

	switch event.Type {
	case EventDeleted:
		delete(c.replicas, key)
		return DesiredState{}, Status{
			Name:       event.Name,
			Namespace:  event.Namespace,
			Phase:      PhasePending,
			Conditions: []Condition{{Type: "Deleted", Status: ConditionTrue, Reason: "ResourceRemoved", LastTransitionTime: now}},
			ObservedAt: now,
		}
	case EventAdded, EventModified:
		desiredReplicas := intField(event.Resource, "replicas", 1)
		c.replicas[key] = desiredReplicas

		desired := DesiredState{
			Deployment:     subSpec(event.Resource, "deployment"),
			Service:        subSpec(event.Resource, "service"),
			ConfigMap:      subSpec(event.Resource, "config_map"),
			Secret:         subSpec(event.Resource, "secret"),
			ServiceAccount: subSpec(event.Resource, "service_account"),
		}

		phase := PhaseProgressing
		reason := "ReconcileInProgress"
		if event.Type == EventModified && event.OldResource != nil {
			if intField(event.OldResource, "replicas", 1) == desiredReplicas {
				phase = PhaseReady
				reason = "NoChangeDetected"
			}
		}

		status := Status{
			Name:            event.Name,
			Namespace:       event.Namespace,
			Phase:           phase,
			DesiredReplicas: desiredReplicas,
			ReadyReplicas:   0,
			Conditions: []Condition{{
				Type:               "Reconciled",
				Status:             ConditionTrue,
				Reason:             reason,
				LastTransitionTime: now,
			}},
			ObservedAt: now,
		}
		return desired, status
	default:
		return DesiredState{}, Status{
			Name:       event.Name,
			Namespace:  event.Namespace,
			Phase:      PhaseFailed,
			Conditions: []Condition{{Type: "UnknownEventType", Status: ConditionUnknown, Reason: string(event.Type), LastTransitionTime: now}},
			ObservedAt: now,
		}
	}
}

// ObserveReadyReplicas updates the ready-replica count the external
// operator reported for a resource, returning the refreshed Status.
func (c *Controller) ObserveReadyReplicas(namespace, name string, ready int, perf PerformanceMetrics) Status {
	key := resourceKey(namespace, name)
	desired := c.replicas[key]
	now := time.Now()

	phase := PhaseProgressing
	switch {
	case ready == 0 && desired > 0:
		phase = PhaseDegraded
	case ready >= desired && desired > 0:
		phase = PhaseReady
	case desired == 0:
		phase = PhasePending
	}

	return Status{
		Name:            name,
		Namespace:       namespace,
		Phase:           phase,
		DesiredReplicas: desired,
		ReadyReplicas:   ready,
		Performance:     perf,
		Conditions: []Condition{{
			Type:               "Available",
			Status:             boolStatus(ready >= desired && desired > 0),
			Reason:             "ReplicaCountObserved",
			LastTransitionTime: now,
		}},
		ObservedAt: now,
	}
}

func boolStatus(b bool) ConditionStatus {
	if b {
		return ConditionTrue
	}
	return ConditionFalse
}

func intField(resource map[string]interface{}, key string, fallback int) int {
	if resource == nil {
		return fallback
	}
	v, ok := resource[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func subSpec(resource map[string]interface{}, key string) map[string]interface{} {
	if resource == nil {
		return nil
	}
	v, ok := resource[key]
	if !ok {
		return nil
	}
	spec, _ := v.(map[string]interface{})
	return spec
}
