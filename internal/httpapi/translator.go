package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/translator"
)

// translateRequest is POST /translator/translate's body.
type translateRequest struct {
	Message        json.RawMessage   `json:"message"`
	TargetProtocol string            `json:"target_protocol"`
	SourceProtocol string            `json:"source_protocol,omitempty"`
	MessageID      string            `json:"message_id,omitempty"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	SenderID       string            `json:"sender_id,omitempty"`
	RecipientID    string            `json:"recipient_id,omitempty"`
	Priority       int               `json:"priority,omitempty"`
	CustomHeaders  map[string]string `json:"custom_headers,omitempty"`
}

func (req translateRequest) header() model.MessageHeader {
	return model.MessageHeader{
		MessageID:      req.MessageID,
		CorrelationID:  req.CorrelationID,
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		SourceProtocol: req.SourceProtocol,
		TargetProtocol: req.TargetProtocol,
		Priority:       req.Priority,
		CustomHeaders:  req.CustomHeaders,
	}
}

func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if h.translate == nil {
		writeError(w, r, apierrors.Configuration("translator not wired"))
		return
	}
	var req translateRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	if req.TargetProtocol == "" {
		writeError(w, r, apierrors.Validation("target_protocol is required").WithField("target_protocol"))
		return
	}
	if req.MessageID == "" {
		req.MessageID = h.translate.NextMessageID()
	}

	outcome := h.translate.TranslateMessage(r.Context(), req.Message, req.header(), req.TargetProtocol)
	writeJSON(w, http.StatusOK, outcome)
}

type translateBatchRequest struct {
	Messages []translateRequest `json:"messages"`
}

func (h *Handler) handleTranslateBatch(w http.ResponseWriter, r *http.Request) {
	if h.translate == nil {
		writeError(w, r, apierrors.Configuration("translator not wired"))
		return
	}
	var req translateBatchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}

	items := make([]translator.BatchItem, len(req.Messages))
	for i, m := range req.Messages {
		items[i] = translator.BatchItem{Raw: m.Message, Header: m.header(), TargetProtocol: m.TargetProtocol}
	}
	outcomes := h.translate.TranslateBatch(r.Context(), items)
	writeJSON(w, http.StatusOK, outcomes)
}

type detectProtocolRequest struct {
	Message json.RawMessage `json:"message"`
}

func (h *Handler) handleDetectProtocol(w http.ResponseWriter, r *http.Request) {
	var req detectProtocolRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	protocol, ok := translator.DetectProtocol(req.Message)
	if !ok {
		writeError(w, r, apierrors.Validation("could not detect protocol").WithField("message"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"protocol": protocol})
}

func (h *Handler) handleTranslationRulesCollection(w http.ResponseWriter, r *http.Request) {
	if h.translate == nil {
		writeError(w, r, apierrors.Configuration("translator not wired"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.translate.ListTranslationRules())
	case http.MethodPost:
		var rule model.TranslationRule
		if err := decodeJSON(r.Body, &rule); err != nil {
			writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
			return
		}
		if err := h.translate.AddTranslationRule(r.Context(), rule); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) handleTranslationRuleItem(w http.ResponseWriter, r *http.Request) {
	if h.translate == nil {
		writeError(w, r, apierrors.Configuration("translator not wired"))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/translator/rules/")
	if id == "" {
		writeError(w, r, apierrors.Validation("rule id is required").WithField("id"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var rule model.TranslationRule
		if err := decodeJSON(r.Body, &rule); err != nil {
			writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
			return
		}
		rule.ID = id
		if err := h.translate.UpdateTranslationRule(r.Context(), rule); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rule)
	case http.MethodDelete:
		if err := h.translate.RemoveTranslationRule(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

func (h *Handler) handleRegisterSchema(w http.ResponseWriter, r *http.Request) {
	if h.translate == nil {
		writeError(w, r, apierrors.Configuration("translator not wired"))
		return
	}
	protocol := strings.TrimPrefix(r.URL.Path, "/translator/schemas/")
	if protocol == "" {
		writeError(w, r, apierrors.Validation("protocol is required").WithField("protocol"))
		return
	}
	var body struct {
		RequiredFields []string `json:"required_fields"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		writeError(w, r, apierrors.Validation("invalid request body").WithField("body"))
		return
	}
	h.translate.RegisterSchema(translator.Schema{Protocol: protocol, RequiredFields: body.RequiredFields})
	w.WriteHeader(http.StatusNoContent)
}
