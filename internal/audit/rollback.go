package audit

import (
	"context"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/google/uuid"
)

// SubmitRollbackRequest attaches the current dependent-change ids
// (later changes on the same entity) and persists the request as
// PENDING.
func (e *Engine) SubmitRollbackRequest(ctx context.Context, req model.RollbackRequest) (*model.RollbackRequest, error) {
	target, err := e.gateway.GetChange(ctx, req.TargetChangeID)
	if err != nil {
		return nil, apierrors.NotFound("change_record", req.TargetChangeID)
	}

	dependents, err := e.dependentsOf(ctx, target)
	if err != nil {
		return nil, err
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.DependentChangeIDs = dependents
	req.Status = model.RollbackPending
	req.RequestedAt = time.Now()

	if err := e.gateway.CreateRollback(ctx, &req); err != nil {
		return nil, apierrors.Database("create rollback request", err)
	}
	return &req, nil
}

// dependentsOf returns the ids of every change on the same
// (entity_kind, entity_id) that was recorded after target and still
// represents unresolved forward drift. Two kinds of sibling changes are
// excluded even though they post-date target: a change's own compensating
// record (it is a rollback artifact, not an independent modification) and
// a change that has itself already been compensated by a later rollback
// (it no longer stands between target and the present). Without this
// filter, rolling back a dependent change would never clear the block on
// its own target, since the compensating record it produces always
// post-dates the target too.
func (e *Engine) dependentsOf(ctx context.Context, target *model.ChangeRecord) ([]string, error) {
	siblings, err := e.gateway.ListChanges(ctx, target.EntityKind, target.EntityID)
	if err != nil {
		return nil, apierrors.Database("list sibling changes", err)
	}

	resolved := make(map[string]bool, len(siblings))
	for _, c := range siblings {
		if compensates, ok := c.Metadata["compensates"].(string); ok && compensates != "" {
			resolved[compensates] = true
		}
	}

	var ids []string
	for _, c := range siblings {
		if c.ID == target.ID || !c.ChangedAt.After(target.ChangedAt) {
			continue
		}
		if _, isCompensating := c.Metadata["compensates"]; isCompensating {
			continue
		}
		if resolved[c.ID] {
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ExecuteRollback validates feasibility (no post-dating dependent change
// unless override is set), then emits a compensating Change Record that
// swaps the target's old/new values rather than mutating the target in
// place — see SPEC_FULL.md's open-question decision. An infeasible
// rollback refreshes the request's dependent list, leaves it PENDING and
// returns CONFLICT with that list; otherwise the request is marked
// EXECUTING and then COMPLETED or FAILED.
func (e *Engine) ExecuteRollback(ctx context.Context, id string, override bool) (*model.RollbackRequest, error) {
	rb, err := e.gateway.GetRollback(ctx, id)
	if err != nil {
		return nil, apierrors.NotFound("rollback_request", id)
	}
	if rb.Status != model.RollbackPending && rb.Status != model.RollbackApproved {
		return nil, apierrors.Conflict("rollback is not in a pending/approved state").WithDetails("status", rb.Status)
	}

	target, err := e.gateway.GetChange(ctx, rb.TargetChangeID)
	if err != nil {
		return nil, apierrors.NotFound("change_record", rb.TargetChangeID)
	}

	dependents, err := e.dependentsOf(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(dependents) > 0 && !override {
		rb.DependentChangeIDs = dependents
		if uerr := e.gateway.UpdateRollback(ctx, rb); uerr != nil {
			return nil, apierrors.Database("update rollback dependents", uerr)
		}
		return nil, apierrors.Conflict("rollback blocked by dependent changes").WithDetails("dependent_change_ids", dependents)
	}

	rb.Status = model.RollbackExecuting
	if err := e.gateway.UpdateRollback(ctx, rb); err != nil {
		return nil, apierrors.Database("mark rollback executing", err)
	}

	compensating := model.ChangeRecord{
		UserID:     rb.Requester,
		EntityKind: target.EntityKind,
		EntityID:   target.EntityID,
		Operation:  model.OpUpdate,
		OldValue:   target.NewValue,
		NewValue:   target.OldValue,
		Reason:     "rollback: " + rb.Reason,
		Metadata: map[string]interface{}{
			"compensates": target.ID,
			"rollback_id": rb.ID,
		},
	}
	compensatingID, err := e.RecordChange(ctx, compensating)
	if err != nil {
		rb.Status = model.RollbackFailed
		rb.Result = map[string]interface{}{"error": err.Error()}
		now := time.Now()
		rb.ResolvedAt = &now
		_ = e.gateway.UpdateRollback(ctx, rb)
		return nil, err
	}

	if applier, ok := e.applierFor(target.EntityKind); ok {
		if aerr := applier(ctx, target.EntityID, target.OldValue); aerr != nil {
			rb.Status = model.RollbackFailed
			rb.Result = map[string]interface{}{"error": aerr.Error(), "compensating_change_id": compensatingID}
			now := time.Now()
			rb.ResolvedAt = &now
			_ = e.gateway.UpdateRollback(ctx, rb)
			return nil, apierrors.Wrap(apierrors.CodeProcessing, "rollback applier failed", aerr)
		}
	}

	now := time.Now()
	rb.CompensatingChangeID = compensatingID
	rb.Status = model.RollbackCompleted
	rb.Result = map[string]interface{}{"compensating_change_id": compensatingID}
	rb.ResolvedAt = &now
	if err := e.gateway.UpdateRollback(ctx, rb); err != nil {
		return nil, apierrors.Database("mark rollback completed", err)
	}
	return rb, nil
}

// CancelRollback marks a pending rollback request CANCELLED with reason
// recorded in its result.
func (e *Engine) CancelRollback(ctx context.Context, id, reason string) error {
	rb, err := e.gateway.GetRollback(ctx, id)
	if err != nil {
		return apierrors.NotFound("rollback_request", id)
	}
	now := time.Now()
	rb.Status = model.RollbackCancelled
	rb.Result = map[string]interface{}{"cancel_reason": reason}
	rb.ResolvedAt = &now
	if err := e.gateway.UpdateRollback(ctx, rb); err != nil {
		return apierrors.Database("cancel rollback", err)
	}
	return nil
}

// GetRollback returns a rollback request by id.
func (e *Engine) GetRollback(ctx context.Context, id string) (*model.RollbackRequest, error) {
	rb, err := e.gateway.GetRollback(ctx, id)
	if err != nil {
		return nil, apierrors.NotFound("rollback_request", id)
	}
	return rb, nil
}
