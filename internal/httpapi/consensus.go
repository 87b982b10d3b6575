package httpapi

import (
	"net/http"
	"strings"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// startConsensusRequest is POST /collab/sessions's body: opens a
// multi-agent consensus vote over a fixed option set.
type startConsensusRequest struct {
	SessionID      string   `json:"session_id"`
	Options        []string `json:"options"`
	RequiredAgents []string `json:"required_agents"`
}

func (h *Handler) handleStartConsensus(w http.ResponseWriter, r *http.Request) {
	if h.consensus == nil {
		writeError(w, r, apierrors.Configuration("consensus hub not wired"))
		return
	}
	var req startConsensusRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.SessionID == "" || len(req.Options) == 0 {
		writeError(w, r, apierrors.Validation("session_id and options are required").WithField("session_id"))
		return
	}

	session, err := h.consensus.StartCollaborativeDecision(req.SessionID, req.Options, req.RequiredAgents)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// handleConsensusItem serves POST /collab/sessions/{id}/votes and
// GET /collab/sessions/{id}/result.
func (h *Handler) handleConsensusItem(w http.ResponseWriter, r *http.Request) {
	if h.consensus == nil {
		writeError(w, r, apierrors.Configuration("consensus hub not wired"))
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/collab/sessions/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, r, apierrors.Validation("expected /collab/sessions/{id}/votes|result").WithField("path"))
		return
	}
	sessionID, action := parts[0], parts[1]

	switch action {
	case "votes":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		var vote model.ConsensusVote
		if err := decodeJSON(r.Body, &vote); err != nil {
			writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
			return
		}
		result, complete, err := h.consensus.ContributeToDecision(sessionID, vote)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"complete": complete, "result": result})
	case "result":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		result, ok := h.consensus.GetCollaborativeDecisionResult(sessionID)
		if !ok {
			writeError(w, r, apierrors.NotFound("consensus result", sessionID))
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, r, apierrors.Validation("unknown consensus action").WithDetails("action", action))
	}
}
