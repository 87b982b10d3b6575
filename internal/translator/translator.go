// Package translator is the Message Translator: it detects an inbound
// message's protocol, applies translation-rule-based transformations or a
// built-in pairwise converter, and returns the translated payload in
// neutral JSON (map) form.
package translator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/store"
)

// Protocol names used throughout detection, rules, and built-in
// converters.
const (
	ProtocolJSONRPC   = "JSON-RPC"
	ProtocolREST      = "REST"
	ProtocolGRPC      = "GRPC"
	ProtocolSOAP      = "SOAP"
	ProtocolGraphQL   = "GRAPHQL"
	ProtocolWebSocket = "WEBSOCKET"
)

// Result classifies the outcome of a translation attempt.
type Result string

const (
	ResultSuccess          Result = "SUCCESS"
	ResultPartialSuccess   Result = "PARTIAL_SUCCESS"
	ResultAdaptationNeeded Result = "ADAPTATION_NEEDED"
	ResultFailure          Result = "FAILURE"
	ResultUnsupported      Result = "UNSUPPORTED"
)

// TranslationOutcome is the full response from TranslateMessage.
type TranslationOutcome struct {
	Result            Result                 `json:"result"`
	TranslatedPayload map[string]interface{} `json:"translated_payload,omitempty"`
	TranslatedHeader  model.MessageHeader    `json:"translated_header"`
	Warnings          []string               `json:"warnings,omitempty"`
	Errors            []string               `json:"errors,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ProcessingTimeMs  int64                  `json:"processing_time_ms"`
}

// Config tunes the translator's batch cap, per-message timeout, and
// schema validation.
type Config struct {
	MaxBatchSize      int
	TranslationTimeout time.Duration
	ValidateSchemas   bool
	DefaultProtocol   string
}

// DefaultConfig mirrors spec.md §4.3/§6's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:       100,
		TranslationTimeout: 5 * time.Second,
		ValidateSchemas:    false,
		DefaultProtocol:    ProtocolREST,
	}
}

// Translator is the Message Translator.
type Translator struct {
	cfg Config

	mu    sync.RWMutex
	rules map[string]model.TranslationRule

	schemaMu sync.RWMutex
	schemas  map[string]Schema

	store  store.TranslationRuleGateway
	logger *logging.Logger
	m      *metrics.Metrics

	msgSeq int64
}

// New creates a Translator. store may be nil (rules are then in-memory
// only).
func New(cfg Config, ruleStore store.TranslationRuleGateway, logger *logging.Logger, m *metrics.Metrics) *Translator {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.TranslationTimeout <= 0 {
		cfg.TranslationTimeout = 5 * time.Second
	}
	if cfg.DefaultProtocol == "" {
		cfg.DefaultProtocol = ProtocolREST
	}
	if logger == nil {
		logger = logging.New("translator", "info", "text")
	}
	return &Translator{
		cfg:     cfg,
		rules:   make(map[string]model.TranslationRule),
		schemas: make(map[string]Schema),
		store:   ruleStore,
		logger:  logger,
		m:       m,
	}
}

// NextMessageID mints a monotonic, process-unique "msg_<n>" identifier.
func (t *Translator) NextMessageID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgSeq++
	return fmt.Sprintf("msg_%d", t.msgSeq)
}

// --- rule management -----------------------------------------------------

// AddTranslationRule registers or replaces a rule, persisting it if a
// store is wired.
func (t *Translator) AddTranslationRule(ctx context.Context, rule model.TranslationRule) error {
	t.mu.Lock()
	t.rules[rule.ID] = rule
	t.mu.Unlock()
	if t.store != nil {
		return t.store.UpsertTranslationRule(ctx, &rule)
	}
	return nil
}

// UpdateTranslationRule is an alias for AddTranslationRule (upsert
// semantics, matching the store gateway).
func (t *Translator) UpdateTranslationRule(ctx context.Context, rule model.TranslationRule) error {
	return t.AddTranslationRule(ctx, rule)
}

// RemoveTranslationRule deletes a rule by id.
func (t *Translator) RemoveTranslationRule(ctx context.Context, id string) error {
	t.mu.Lock()
	delete(t.rules, id)
	t.mu.Unlock()
	if t.store != nil {
		return t.store.DeleteTranslationRule(ctx, id)
	}
	return nil
}

// ListTranslationRules returns every registered rule, sorted by priority
// descending then id.
func (t *Translator) ListTranslationRules() []model.TranslationRule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.TranslationRule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LoadRulesFromStore refreshes the in-memory rule cache from the store.
func (t *Translator) LoadRulesFromStore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	rules, err := t.store.ListTranslationRules(ctx)
	if err != nil {
		return err
	}
	next := make(map[string]model.TranslationRule, len(rules))
	for _, r := range rules {
		next[r.ID] = r
	}
	t.mu.Lock()
	t.rules = next
	t.mu.Unlock()
	return nil
}

// bestRuleFor returns the highest-priority active rule matching
// (from, to), honoring bidirectional rules matching either direction.
func (t *Translator) bestRuleFor(from, to string) (model.TranslationRule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best model.TranslationRule
	found := false
	for _, r := range t.rules {
		if !r.Active {
			continue
		}
		matches := (r.FromProtocol == from && r.ToProtocol == to) ||
			(r.Bidirectional && r.FromProtocol == to && r.ToProtocol == from)
		if !matches {
			continue
		}
		if !found || r.Priority > best.Priority {
			best = r
			found = true
		}
	}
	return best, found
}
