package httpapi

import (
	"net/http"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// submitTaskRequest is POST /orchestrator/tasks's body: a compliance
// event handed to the orchestrator for agent dispatch.
type submitTaskRequest struct {
	EventKind string                 `json:"event_kind"`
	Severity  string                 `json:"severity,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	AgentType string                 `json:"agent_type,omitempty"`
	Priority  int                    `json:"priority,omitempty"`
	DeadlineS int                    `json:"deadline_seconds,omitempty"`
}

// handleSubmitTask serves POST /orchestrator/tasks: submits a
// ComplianceEvent to the orchestrator's task queue and returns the
// resulting AgentTask handle.
func (h *Handler) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeError(w, r, apierrors.Configuration("orchestrator not wired"))
		return
	}
	var req submitTaskRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.EventKind == "" {
		writeError(w, r, apierrors.Validation("event_kind is required").WithField("event_kind"))
		return
	}

	severity := model.EventSeverity(req.Severity)
	if severity == "" {
		severity = model.SeverityInfo
	}
	event := model.ComplianceEvent{
		Kind:       req.EventKind,
		Severity:   severity,
		Source:     req.Source,
		Metadata:   req.Metadata,
		OccurredAt: time.Now(),
	}

	deadline := time.Now().Add(30 * time.Second)
	if req.DeadlineS > 0 {
		deadline = time.Now().Add(time.Duration(req.DeadlineS) * time.Second)
	}

	task, err := h.orchestrator.SubmitTask(event, req.AgentType, model.TaskPriority(req.Priority), deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// submitEventRequest is POST /orchestrator/events's body: a compliance
// event handed to the orchestrator's upstream intake rather than
// submitted directly. ProcessPendingEvents drains it on the next poll
// and routes it through find_agent_for_task, unlike /orchestrator/tasks
// which routes and enqueues synchronously on the request.
type submitEventRequest struct {
	EventKind string                 `json:"event_kind"`
	Severity  string                 `json:"severity,omitempty"`
	Source    string                 `json:"source,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// handleSubmitEvent serves POST /orchestrator/events: pushes a
// ComplianceEvent onto the orchestrator's EventSource for the next
// ProcessPendingEvents drain.
func (h *Handler) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	if h.eventSource == nil {
		writeError(w, r, apierrors.Configuration("event source not wired"))
		return
	}
	var req submitEventRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.EventKind == "" {
		writeError(w, r, apierrors.Validation("event_kind is required").WithField("event_kind"))
		return
	}

	severity := model.EventSeverity(req.Severity)
	if severity == "" {
		severity = model.SeverityInfo
	}
	h.eventSource.Push(model.ComplianceEvent{
		Kind:       req.EventKind,
		Severity:   severity,
		Source:     req.Source,
		Metadata:   req.Metadata,
		OccurredAt: time.Now(),
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleOrchestratorStatus serves GET /orchestrator/status.
func (h *Handler) handleOrchestratorStatus(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeError(w, r, apierrors.Configuration("orchestrator not wired"))
		return
	}
	writeJSON(w, http.StatusOK, h.orchestrator.GetStatus())
}
