// Package httpapi is the REST surface described by spec.md §6: JSON over
// HTTP for rule evaluation, translation, and audit/rollback, plus the
// WebSocket upgrade endpoint feeding internal/wsfabric. It is
// framework-free, following the teacher's own hand-rolled
// route/mountRoutes pattern over net/http.ServeMux rather than pulling in
// an unused router dependency (spec.md's Non-goals exclude "acting as a
// web framework").
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/audit"
	"github.com/gaigenticai/Regulens-sub011/internal/collab"
	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/orchestrator"
	"github.com/gaigenticai/Regulens-sub011/internal/ratelimit"
	"github.com/gaigenticai/Regulens-sub011/internal/ruleengine"
	"github.com/gaigenticai/Regulens-sub011/internal/translator"
	"github.com/gaigenticai/Regulens-sub011/internal/wsfabric"
	"github.com/google/uuid"
)

// Handler bundles every subsystem the REST/WebSocket surface fronts.
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	eventSource  *orchestrator.BufferedEventSource
	rules        *ruleengine.Engine
	translate    *translator.Translator
	auditEngine  *audit.Engine
	fabric       *wsfabric.Fabric
	streamer     *collab.Streamer
	consensus    *collab.ConsensusHub
	limiter      *ratelimit.Limiter
	logger       *logging.Logger
	m            *metrics.Metrics
}

// Deps wires every collaborator NewHandler needs. Fields may be left nil
// if the corresponding routes are not mounted (see Router's use of each).
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	EventSource  *orchestrator.BufferedEventSource
	Rules        *ruleengine.Engine
	Translator   *translator.Translator
	Audit        *audit.Engine
	Fabric       *wsfabric.Fabric
	Streamer     *collab.Streamer
	Consensus    *collab.ConsensusHub
	Limiter      *ratelimit.Limiter
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// NewHandler builds a Handler from Deps.
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.New("httpapi", "info", "text")
	}
	return &Handler{
		orchestrator: deps.Orchestrator,
		eventSource:  deps.EventSource,
		rules:        deps.Rules,
		translate:    deps.Translator,
		auditEngine:  deps.Audit,
		fabric:       deps.Fabric,
		streamer:     deps.Streamer,
		consensus:    deps.Consensus,
		limiter:      deps.Limiter,
		logger:       logger,
		m:            deps.Metrics,
	}
}

// errorEnvelope is the standard error body from spec.md §6.
type errorEnvelope struct {
	Error errorBody              `json:"error"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

type errorBody struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Field     string      `json:"field,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
	Path      string      `json:"path"`
	Method    string      `json:"method"`
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err as the standard error envelope, deriving HTTP
// status from the apierrors taxonomy and attaching a Retry-After header
// for retryable codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierrors.HTTPStatusOf(err)
	code := string(apierrors.CodeUnknown)
	message := err.Error()
	var details interface{}
	var field string

	if e, ok := apierrors.As(err); ok {
		code = string(e.Code)
		message = e.Message
		if len(e.Details) > 0 {
			details = e.Details
		}
		field = e.Field
		if e.Code.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
	}

	writeJSON(w, status, errorEnvelope{
		Error: errorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			Field:     field,
			Timestamp: time.Now(),
			RequestID: uuid.NewString(),
			Path:      r.URL.Path,
			Method:    r.Method,
		},
	})
}
