package httpapi

import (
	"net/http"
	"strings"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// handleGetChange serves GET /audit/changes/{id}.
func (h *Handler) handleGetChange(w http.ResponseWriter, r *http.Request) {
	if h.auditEngine == nil {
		writeError(w, r, apierrors.Configuration("audit engine not wired"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/audit/changes/")
	if id == "" {
		writeError(w, r, apierrors.Validation("change id is required").WithField("id"))
		return
	}
	change, err := h.auditEngine.GetChange(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// handleEntityHistory serves GET /audit/entity/{kind}/{id}/history.
func (h *Handler) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	if h.auditEngine == nil {
		writeError(w, r, apierrors.Configuration("audit engine not wired"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/audit/entity/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if len(parts) != 3 || parts[2] != "history" {
		writeError(w, r, apierrors.Validation("expected /audit/entity/{kind}/{id}/history").WithField("path"))
		return
	}
	entityKind, entityID := parts[0], parts[1]

	changes, err := h.auditEngine.ListByEntity(r.Context(), entityKind, entityID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

// submitRollbackRequest is POST /audit/rollback's body.
type submitRollbackRequest struct {
	Requester      string `json:"requester"`
	TargetChangeID string `json:"target_change_id"`
	Reason         string `json:"reason"`
}

func (h *Handler) handleSubmitRollback(w http.ResponseWriter, r *http.Request) {
	if h.auditEngine == nil {
		writeError(w, r, apierrors.Configuration("audit engine not wired"))
		return
	}
	var req submitRollbackRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.TargetChangeID == "" {
		writeError(w, r, apierrors.Validation("target_change_id is required").WithField("target_change_id"))
		return
	}

	rb, err := h.auditEngine.SubmitRollbackRequest(r.Context(), model.RollbackRequest{
		Requester:      req.Requester,
		TargetChangeID: req.TargetChangeID,
		Reason:         req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rb)
}

// handleRollbackItem serves POST /audit/rollback/{id}/execute and
// POST /audit/rollback/{id}/cancel.
func (h *Handler) handleRollbackItem(w http.ResponseWriter, r *http.Request) {
	if h.auditEngine == nil {
		writeError(w, r, apierrors.Configuration("audit engine not wired"))
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/audit/rollback/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, r, apierrors.Validation("expected /audit/rollback/{id}/execute|cancel").WithField("path"))
		return
	}
	id, action := parts[0], parts[1]

	switch action {
	case "execute":
		override := r.URL.Query().Get("override") == "true"
		rb, err := h.auditEngine.ExecuteRollback(r.Context(), id, override)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rb)
	case "cancel":
		var body struct {
			Reason string `json:"reason"`
		}
		_ = decodeJSON(r.Body, &body)
		if err := h.auditEngine.CancelRollback(r.Context(), id, body.Reason); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, r, apierrors.Validation("unknown rollback action").WithDetails("action", action))
	}
}
