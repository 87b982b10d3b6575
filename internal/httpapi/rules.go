package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/ruleengine"
)

// evaluateRuleRequest is POST /rules/evaluate's body.
type evaluateRuleRequest struct {
	TransactionData map[string]interface{} `json:"transaction_data"`
	UserID          string                 `json:"user_id,omitempty"`
	UserProfile     map[string]interface{} `json:"user_profile,omitempty"`
	HistoricalData  map[string]interface{} `json:"historical_data,omitempty"`
	SourceSystem    string                 `json:"source_system,omitempty"`
	Metadata        map[string]string      `json:"metadata,omitempty"`
	RuleIDs         []string               `json:"rule_ids,omitempty"`
}

func (h *Handler) handleEvaluateRule(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, r, apierrors.Configuration("rule engine not wired"))
		return
	}
	var req evaluateRuleRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.TransactionData == nil {
		writeError(w, r, apierrors.Validation("transaction_data is required").WithField("transaction_data"))
		return
	}

	ec := ruleengine.ExecutionContext{
		UserID:          req.UserID,
		TransactionData: req.TransactionData,
		UserProfile:     req.UserProfile,
		HistoricalData:  req.HistoricalData,
		SourceSystem:    req.SourceSystem,
		Metadata:        req.Metadata,
		ExecutionTime:   time.Now(),
	}
	result := h.rules.EvaluateTransaction(r.Context(), ec, req.RuleIDs)
	writeJSON(w, http.StatusOK, result)
}

// evaluateBatchRequest is POST /rules/evaluate/batch's body: up to 100
// transactions evaluated asynchronously.
type evaluateBatchRequest struct {
	Transactions []evaluateRuleRequest `json:"transactions"`
	RuleIDs      []string              `json:"rule_ids,omitempty"`
}

const maxBatchEvaluations = 100

func (h *Handler) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, r, apierrors.Configuration("rule engine not wired"))
		return
	}
	var req evaluateBatchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if len(req.Transactions) == 0 || len(req.Transactions) > maxBatchEvaluations {
		writeError(w, r, apierrors.Validation("transactions must contain 1-100 entries").WithField("transactions"))
		return
	}

	contexts := make([]ruleengine.ExecutionContext, len(req.Transactions))
	for i, txn := range req.Transactions {
		contexts[i] = ruleengine.ExecutionContext{
			UserID:          txn.UserID,
			TransactionData: txn.TransactionData,
			UserProfile:     txn.UserProfile,
			HistoricalData:  txn.HistoricalData,
			SourceSystem:    txn.SourceSystem,
			Metadata:        txn.Metadata,
			ExecutionTime:   time.Now(),
		}
	}

	batchID, err := h.rules.SubmitBatchEvaluation(r.Context(), contexts, req.RuleIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id":     batchID,
		"progress_url": "/rules/evaluate/batch/" + batchID,
	})
}

// handleBatchProgress serves GET /rules/evaluate/batch/{id}: a
// streamable progress handle returning {total, completed, results}.
func (h *Handler) handleBatchProgress(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, r, apierrors.Configuration("rule engine not wired"))
		return
	}
	batchID := strings.TrimPrefix(r.URL.Path, "/rules/evaluate/batch/")
	if batchID == "" {
		writeError(w, r, apierrors.Validation("batch id is required").WithField("id"))
		return
	}
	progress := h.rules.GetBatchProgress(batchID)
	results := h.rules.GetBatchResults(batchID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"batch_id": batchID,
		"progress": progress,
		"results":  results,
	})
}

// handleRulesCollection serves GET /rules (list) and POST /rules
// (create); admin-only mutations per spec.md §6 are assumed enforced by
// an upstream authentication collaborator, out of this module's scope.
func (h *Handler) handleRulesCollection(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, r, apierrors.Configuration("rule engine not wired"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		onlyActive := r.URL.Query().Get("active_only") == "true"
		kind := r.URL.Query().Get("type")
		limitStr := r.URL.Query().Get("limit")

		var rules []model.RuleDefinition
		if onlyActive {
			rules = h.rules.GetActiveRules()
		} else if kind != "" {
			rules = h.rules.GetRulesByKind(model.RuleKind(kind))
		} else {
			rules = h.rules.GetActiveRules()
		}
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(rules) {
			rules = rules[:limit]
		}
		writeJSON(w, http.StatusOK, rules)
	case http.MethodPost:
		var rule model.RuleDefinition
		if err := decodeJSON(r.Body, &rule); err != nil {
			writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
			return
		}
		if err := h.rules.RegisterRule(r.Context(), rule); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleRuleItem serves GET/PATCH/DELETE /rules/{id}.
func (h *Handler) handleRuleItem(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		writeError(w, r, apierrors.Configuration("rule engine not wired"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/rules/")
	if id == "" {
		writeError(w, r, apierrors.Validation("rule id is required").WithField("id"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		rule, ok := h.rules.GetRule(id)
		if !ok {
			writeError(w, r, apierrors.NotFound("rule", id))
			return
		}
		writeJSON(w, http.StatusOK, rule)
	case http.MethodPatch:
		var rule model.RuleDefinition
		if err := decodeJSON(r.Body, &rule); err != nil {
			writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
			return
		}
		rule.ID = id
		if err := h.rules.UpdateRule(r.Context(), rule); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rule)
	case http.MethodDelete:
		if err := h.rules.DeleteRule(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
