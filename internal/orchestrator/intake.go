package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// EventSource is the orchestrator's upstream intake: whatever external
// collaborator produces ComplianceEvents (a message bus, a webhook queue,
// a poller against an external system). The orchestrator never parses or
// transports events itself — it only drains whatever is ready.
type EventSource interface {
	// DrainEvents returns every event currently ready for processing and
	// removes them from the source. An empty, nil-error result means
	// "nothing pending right now," not a failure.
	DrainEvents(ctx context.Context) ([]model.ComplianceEvent, error)
}

// SetEventSource wires (or replaces) the upstream event source that
// ProcessPendingEvents drains from. A nil source makes ProcessPendingEvents
// a no-op, which is also the zero-value behavior before SetEventSource is
// ever called.
func (o *Orchestrator) SetEventSource(src EventSource) {
	o.eventSourceMu.Lock()
	defer o.eventSourceMu.Unlock()
	o.eventSource = src
}

// ProcessPendingEvents drains the upstream event source, wraps each event
// in a task by routing it through the same algorithm executeTask uses at
// dispatch time (findAgentForTask), and submits it. It also triggers the
// periodic agent health check once HealthCheckInterval has elapsed since
// the last time this method ran one, independent of the cron-driven sweep
// Initialize starts — callers that drive intake by polling (rather than
// running the cron loop) still get health checks on the same cadence.
func (o *Orchestrator) ProcessPendingEvents(ctx context.Context) error {
	o.eventSourceMu.RLock()
	src := o.eventSource
	o.eventSourceMu.RUnlock()

	if src == nil {
		o.maybeRunPolledHealthCheck()
		return nil
	}

	events, err := src.DrainEvents(ctx)
	if err != nil {
		return apierrors.Wrap(apierrors.CodeProcessing, "drain event source", err)
	}

	deadline := o.cfg.EventTaskDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	for _, event := range events {
		agentType := o.routeEventAgentType(event)
		if _, submitErr := o.SubmitTask(event, agentType, priorityForSeverity(event.Severity), time.Now().Add(deadline)); submitErr != nil {
			o.log.WithFields(map[string]interface{}{"event_kind": event.Kind, "error": submitErr.Error()}).Warn("failed to submit task for drained event")
		}
	}

	o.maybeRunPolledHealthCheck()
	return nil
}

// routeEventAgentType runs the routing algorithm against a provisional,
// unrouted task so the agent_type chosen at intake time matches the one
// executeTask would choose at dispatch time. An empty return means no
// agent currently handles this event kind; the task is still submitted
// unrouted and will fail with NO_SUITABLE_AGENT at dispatch, surfacing the
// same diagnostic a directly-submitted task would get.
func (o *Orchestrator) routeEventAgentType(event model.ComplianceEvent) string {
	agentType, _, found := o.findAgentForTask(model.AgentTask{Event: event})
	if !found {
		return ""
	}
	return agentType
}

// priorityForSeverity maps a ComplianceEvent's severity onto the task
// priority the queue orders by: CRITICAL events jump the queue, warnings
// run ahead of routine events, everything else is NORMAL.
func priorityForSeverity(severity model.EventSeverity) model.TaskPriority {
	switch severity {
	case model.SeverityCritical:
		return model.PriorityCritical
	case model.SeverityWarning:
		return model.PriorityHigh
	default:
		return model.PriorityNormal
	}
}

// BufferedEventSource is a minimal in-memory EventSource: external
// collaborators (a REST intake endpoint, a message-bus consumer) call
// Push as compliance events arrive; ProcessPendingEvents calls DrainEvents
// to collect and clear whatever has accumulated since the last drain.
type BufferedEventSource struct {
	mu      sync.Mutex
	pending []model.ComplianceEvent
}

// NewBufferedEventSource returns an empty BufferedEventSource.
func NewBufferedEventSource() *BufferedEventSource {
	return &BufferedEventSource{}
}

// Push appends an event to the buffer for the next drain.
func (b *BufferedEventSource) Push(event model.ComplianceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, event)
}

// DrainEvents returns and clears everything buffered so far.
func (b *BufferedEventSource) DrainEvents(ctx context.Context) ([]model.ComplianceEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil, nil
	}
	drained := b.pending
	b.pending = nil
	return drained, nil
}

// maybeRunPolledHealthCheck invokes runHealthChecks if HealthCheckInterval
// has elapsed since the last time ProcessPendingEvents triggered one.
func (o *Orchestrator) maybeRunPolledHealthCheck() {
	interval := o.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	now := time.Now().UnixNano()
	last := o.lastPolledHealthCheckNanos.Load()
	if last != 0 && time.Duration(now-last) < interval {
		return
	}
	if !o.lastPolledHealthCheckNanos.CompareAndSwap(last, now) {
		return
	}
	o.runHealthChecks()
}
