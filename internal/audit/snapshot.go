package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/google/uuid"
)

// CreateSnapshot assigns the next monotone version_number for
// (entity_kind, entity_id) and persists the snapshot. Invariant:
// version numbers for a given entity form a gap-free ascending sequence
// starting at 1.
func (e *Engine) CreateSnapshot(ctx context.Context, entityKind, entityID, createdBy string, state map[string]interface{}) (*model.EntitySnapshot, error) {
	e.mu.Lock()
	key := fmt.Sprintf("%s/%s", entityKind, entityID)
	e.versions[key]++
	version := e.versions[key]
	e.mu.Unlock()

	snap := &model.EntitySnapshot{
		ID:            uuid.NewString(),
		EntityKind:    entityKind,
		EntityID:      entityID,
		VersionNumber: version,
		State:         state,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now(),
		Active:        true,
	}
	if err := e.gateway.PutSnapshot(ctx, snap); err != nil {
		return nil, apierrors.Database("put entity snapshot", err)
	}
	return snap, nil
}

// GetSnapshot returns a specific version of an entity's state.
func (e *Engine) GetSnapshot(ctx context.Context, entityKind, entityID string, version int) (*model.EntitySnapshot, error) {
	snap, err := e.gateway.GetSnapshot(ctx, entityKind, entityID, version)
	if err != nil {
		return nil, apierrors.NotFound("entity_snapshot", fmt.Sprintf("%s/%s@%d", entityKind, entityID, version))
	}
	return snap, nil
}

// GetEntityVersions returns up to limit snapshots for an entity, most
// recent first. limit <= 0 means unbounded.
func (e *Engine) GetEntityVersions(ctx context.Context, entityKind, entityID string, limit int) ([]model.EntitySnapshot, error) {
	all, err := e.gateway.ListSnapshots(ctx, entityKind, entityID)
	if err != nil {
		return nil, err
	}
	reversed := make([]model.EntitySnapshot, len(all))
	for i, s := range all {
		reversed[len(all)-1-i] = s
	}
	if limit > 0 && len(reversed) > limit {
		reversed = reversed[:limit]
	}
	return reversed, nil
}

// GetEntityAtPointInTime returns the most recent snapshot with
// CreatedAt <= timestamp, or nil if none exists.
func (e *Engine) GetEntityAtPointInTime(ctx context.Context, entityKind, entityID string, timestamp time.Time) (*model.EntitySnapshot, error) {
	all, err := e.gateway.ListSnapshots(ctx, entityKind, entityID)
	if err != nil {
		return nil, err
	}
	var best *model.EntitySnapshot
	for i := range all {
		s := all[i]
		if s.CreatedAt.After(timestamp) {
			continue
		}
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			snap := s
			best = &snap
		}
	}
	return best, nil
}
