package httpapi

import (
	"net/http"
	"strings"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
)

// route describes a single endpoint with an optional method guard,
// modeled on the teacher's applications/httpapi/router.go.
type route struct {
	pattern string
	method  string
	handler http.HandlerFunc
}

// mountRoutes attaches every route to mux, wrapping handlers with method
// enforcement when a method is specified.
func mountRoutes(mux *http.ServeMux, routes ...route) {
	for _, rt := range routes {
		if rt.pattern == "" || rt.handler == nil {
			continue
		}
		handler := rt.handler
		if rt.method != "" {
			handler = withMethod(rt.method, handler)
		}
		mux.HandleFunc(rt.pattern, handler)
	}
}

func withMethod(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, method)
			return
		}
		fn(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// NewRouter mounts every endpoint from spec.md §6 onto a fresh
// net/http.ServeMux, guarded by the IP-keyed rate limiter.
func (h *Handler) NewRouter() http.Handler {
	mux := http.NewServeMux()

	mountRoutes(mux,
		route{"/rules/evaluate", http.MethodPost, h.handleEvaluateRule},
		route{"/rules/evaluate/batch", http.MethodPost, h.handleEvaluateBatch},
		route{"/rules/evaluate/batch/", http.MethodGet, h.handleBatchProgress},
		route{"/rules", "", h.handleRulesCollection},
		route{"/rules/", "", h.handleRuleItem},

		route{"/translator/translate", http.MethodPost, h.handleTranslate},
		route{"/translator/batch", http.MethodPost, h.handleTranslateBatch},
		route{"/translator/detect", http.MethodPost, h.handleDetectProtocol},
		route{"/translator/rules", "", h.handleTranslationRulesCollection},
		route{"/translator/rules/", "", h.handleTranslationRuleItem},
		route{"/translator/schemas/", http.MethodPost, h.handleRegisterSchema},

		route{"/audit/changes/", http.MethodGet, h.handleGetChange},
		route{"/audit/entity/", http.MethodGet, h.handleEntityHistory},
		route{"/audit/rollback", http.MethodPost, h.handleSubmitRollback},
		route{"/audit/rollback/", "", h.handleRollbackItem},

		route{"/orchestrator/tasks", http.MethodPost, h.handleSubmitTask},
		route{"/orchestrator/events", http.MethodPost, h.handleSubmitEvent},
		route{"/orchestrator/status", http.MethodGet, h.handleOrchestratorStatus},

		route{"/collab/sessions", http.MethodPost, h.handleStartConsensus},
		route{"/collab/sessions/", "", h.handleConsensusItem},

		route{"/ws", "", h.handleWebSocket},
		route{"/healthz", http.MethodGet, h.handleHealthz},
	)

	return h.withRateLimit(mux)
}

func (h *Handler) withRateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !h.limiter.Allow(ip) {
			writeError(w, r, apierrors.RateLimitExceeded(60, "1m"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		return host[:idx]
	}
	return host
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
