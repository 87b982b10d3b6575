// Package audit is the Audit & Rollback Engine: it journals every
// mutation to a tracked entity, supports version-aware snapshot queries,
// and coordinates reversals. Change records are appended by RecordChange
// (and by a successful rollback's compensating record); approvals,
// rejections and blocked rollbacks update existing records instead of
// appending new ones.
package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/store"
	"github.com/google/uuid"
)

// EntityApplier writes a reverted value back onto the live entity a
// change record describes. Registered per entity kind so ExecuteRollback
// can make a rollback observable on the owning component's own store,
// not just in the audit journal.
type EntityApplier func(ctx context.Context, entityID string, value map[string]interface{}) error

// Engine is the Audit & Rollback Engine.
type Engine struct {
	gateway store.AuditGateway
	logger  *logging.Logger
	m       *metrics.Metrics

	mu       sync.Mutex
	versions map[string]int
	appliers map[string]EntityApplier
}

// New constructs an Engine backed by gateway.
func New(gateway store.AuditGateway, logger *logging.Logger, m *metrics.Metrics) *Engine {
	if logger == nil {
		logger = logging.New("audit", "info", "text")
	}
	return &Engine{
		gateway:  gateway,
		logger:   logger,
		m:        m,
		versions: make(map[string]int),
		appliers: make(map[string]EntityApplier),
	}
}

// RegisterEntityApplier wires an applier for entityKind. A rollback
// against an entity with no registered applier still succeeds: it still
// emits the compensating change record, it just has nothing live to push
// the reverted value onto.
func (e *Engine) RegisterEntityApplier(entityKind string, applier EntityApplier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appliers[entityKind] = applier
}

func (e *Engine) applierFor(entityKind string) (EntityApplier, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.appliers[entityKind]
	return a, ok
}

// RecordChange assigns an id and timestamp, computes the diff, infers
// impact, appends to the journal, and returns the assigned id. It
// satisfies ruleengine.AuditRecorder.
func (e *Engine) RecordChange(ctx context.Context, change model.ChangeRecord) (string, error) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now()
	}
	change.Diff = computeDiff(change.OldValue, change.NewValue)
	if change.Impact == "" {
		change.Impact = inferImpact(change.EntityKind, change.Operation, change.Diff)
	}

	if err := e.gateway.AppendChange(ctx, &change); err != nil {
		return "", apierrors.Database("append change record", err)
	}
	if e.m != nil {
		e.m.AuditChangesTotal.Inc()
	}
	e.logger.LogAudit(ctx, change.ID, change.EntityKind, string(change.Operation))
	return change.ID, nil
}

// computeDiff returns the set of top-level keys whose value differs
// between old and new, each mapped to {"old": ..., "new": ...}. An empty
// map means old and new are equal.
func computeDiff(oldValue, newValue map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	seen := make(map[string]struct{}, len(oldValue)+len(newValue))
	for k := range oldValue {
		seen[k] = struct{}{}
	}
	for k := range newValue {
		seen[k] = struct{}{}
	}
	for k := range seen {
		ov, oldHas := oldValue[k]
		nv, newHas := newValue[k]
		if oldHas && newHas && fmt.Sprintf("%v", ov) == fmt.Sprintf("%v", nv) {
			continue
		}
		entry := map[string]interface{}{}
		if oldHas {
			entry["old"] = ov
		}
		if newHas {
			entry["new"] = nv
		}
		diff[k] = entry
	}
	return diff
}

// inferImpact is pure given (entity_kind, operation, diff), per spec.md
// §4.5: deletes are always CRITICAL, policy edits are HIGH, rule edits
// are MEDIUM with anything else LOW.
func inferImpact(entityKind string, op model.ChangeOperation, diff map[string]interface{}) model.ChangeImpact {
	if op == model.OpDelete {
		return model.ImpactCritical
	}
	switch entityKind {
	case "POLICY":
		return model.ImpactHigh
	case "RULE":
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

// ApproveChange records approver and comments as approval evidence and
// marks the change approved.
func (e *Engine) ApproveChange(ctx context.Context, id, approver, comments string) error {
	return e.resolveApproval(ctx, id, approver, comments, true)
}

// RejectChange records rejector and reason as rejection evidence,
// leaving the change unapproved.
func (e *Engine) RejectChange(ctx context.Context, id, rejector, reason string) error {
	return e.resolveApproval(ctx, id, rejector, reason, false)
}

func (e *Engine) resolveApproval(ctx context.Context, id, actor, note string, approve bool) error {
	change, err := e.gateway.GetChange(ctx, id)
	if err != nil {
		return apierrors.NotFound("change_record", id)
	}
	now := time.Now()
	change.Approved = approve
	change.ApprovedAt = &now
	if change.Metadata == nil {
		change.Metadata = make(map[string]interface{})
	}
	if approve {
		change.Metadata["approved_by"] = actor
		change.Metadata["approval_comments"] = note
	} else {
		change.Metadata["rejected_by"] = actor
		change.Metadata["rejection_reason"] = note
	}
	if err := e.gateway.UpdateChange(ctx, change); err != nil {
		return apierrors.Database("update change approval", err)
	}
	return nil
}

// GetChange returns a single change record by id.
func (e *Engine) GetChange(ctx context.Context, id string) (*model.ChangeRecord, error) {
	change, err := e.gateway.GetChange(ctx, id)
	if err != nil {
		return nil, apierrors.NotFound("change_record", id)
	}
	return change, nil
}

// ListByEntity returns every change journaled against (entityKind, entityID).
func (e *Engine) ListByEntity(ctx context.Context, entityKind, entityID string) ([]model.ChangeRecord, error) {
	return e.gateway.ListChanges(ctx, entityKind, entityID)
}

// ListByUser returns every change attributed to userID across all entities.
func (e *Engine) ListByUser(ctx context.Context, userID string) ([]model.ChangeRecord, error) {
	all, err := e.gateway.ListAllChanges(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, c := range all {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListByOperation returns every change of the given operation kind.
func (e *Engine) ListByOperation(ctx context.Context, op model.ChangeOperation) ([]model.ChangeRecord, error) {
	all, err := e.gateway.ListAllChanges(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, c := range all {
		if c.Operation == op {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListHighImpact returns CRITICAL/HIGH changes from the last N days.
func (e *Engine) ListHighImpact(ctx context.Context, days int) ([]model.ChangeRecord, error) {
	all, err := e.gateway.ListAllChanges(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	out := all[:0:0]
	for _, c := range all {
		if (c.Impact == model.ImpactCritical || c.Impact == model.ImpactHigh) && !c.ChangedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}
