package audit

import (
	"context"
	"testing"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *Engine {
	return New(store.NewMemoryGateway(), nil, nil)
}

func TestRecordChange_InfersImpact(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	id, err := e.RecordChange(ctx, model.ChangeRecord{EntityKind: "RULE", EntityID: "r1", Operation: model.OpUpdate})
	require.NoError(t, err)
	change, err := e.GetChange(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ImpactMedium, change.Impact)

	id2, err := e.RecordChange(ctx, model.ChangeRecord{EntityKind: "RULE", EntityID: "r1", Operation: model.OpDelete})
	require.NoError(t, err)
	change2, err := e.GetChange(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, model.ImpactCritical, change2.Impact)
}

func TestRollback_BlockedByDependentsThenSucceeds(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	c1ID, err := e.RecordChange(ctx, model.ChangeRecord{
		EntityKind: "RULE", EntityID: "r7", Operation: model.OpUpdate,
		OldValue: map[string]interface{}{"priority": model.PriorityLow},
		NewValue: map[string]interface{}{"priority": model.PriorityNormal},
	})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	c2ID, err := e.RecordChange(ctx, model.ChangeRecord{
		EntityKind: "RULE", EntityID: "r7", Operation: model.OpUpdate,
		OldValue: map[string]interface{}{"priority": model.PriorityNormal},
		NewValue: map[string]interface{}{"priority": model.PriorityHigh},
	})
	require.NoError(t, err)

	rb, err := e.SubmitRollbackRequest(ctx, model.RollbackRequest{Requester: "alice", TargetChangeID: c1ID, Reason: "revert"})
	require.NoError(t, err)
	assert.Equal(t, []string{c2ID}, rb.DependentChangeIDs)

	_, err = e.ExecuteRollback(ctx, rb.ID, false)
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeConflict, apiErr.Code)

	rbC2, err := e.SubmitRollbackRequest(ctx, model.RollbackRequest{Requester: "alice", TargetChangeID: c2ID, Reason: "revert c2"})
	require.NoError(t, err)
	_, err = e.ExecuteRollback(ctx, rbC2.ID, false)
	require.NoError(t, err)

	done, err := e.ExecuteRollback(ctx, rb.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RollbackCompleted, done.Status)
}

func TestRollback_AppliesBackToLiveEntityViaRegisteredApplier(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	var applied map[string]interface{}
	e.RegisterEntityApplier("RULE", func(ctx context.Context, entityID string, value map[string]interface{}) error {
		applied = value
		return nil
	})

	c1ID, err := e.RecordChange(ctx, model.ChangeRecord{
		EntityKind: "RULE", EntityID: "r7", Operation: model.OpUpdate,
		OldValue: map[string]interface{}{"priority": model.PriorityLow},
		NewValue: map[string]interface{}{"priority": model.PriorityHigh},
	})
	require.NoError(t, err)

	rb, err := e.SubmitRollbackRequest(ctx, model.RollbackRequest{Requester: "alice", TargetChangeID: c1ID})
	require.NoError(t, err)
	_, err = e.ExecuteRollback(ctx, rb.ID, false)
	require.NoError(t, err)

	require.NotNil(t, applied)
	assert.Equal(t, model.PriorityLow, applied["priority"])
}

func TestSnapshots_VersionsAreGapFreeAndPointInTimeQueryWorks(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	base := time.Now()
	s1, err := e.CreateSnapshot(ctx, "RULE", "r1", "alice", map[string]interface{}{"priority": "LOW"})
	require.NoError(t, err)
	assert.Equal(t, 1, s1.VersionNumber)

	s2, err := e.CreateSnapshot(ctx, "RULE", "r1", "alice", map[string]interface{}{"priority": "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, 2, s2.VersionNumber)

	versions, err := e.GetEntityVersions(ctx, "RULE", "r1", 10)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[1].VersionNumber)

	atT1, err := e.GetEntityAtPointInTime(ctx, "RULE", "r1", s1.CreatedAt)
	require.NoError(t, err)
	require.NotNil(t, atT1)
	assert.Equal(t, 1, atT1.VersionNumber)

	before, err := e.GetEntityAtPointInTime(ctx, "RULE", "r1", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, before)
}

func TestApproveAndRejectChange(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	id, err := e.RecordChange(ctx, model.ChangeRecord{EntityKind: "RULE", EntityID: "r1", Operation: model.OpUpdate})
	require.NoError(t, err)

	require.NoError(t, e.ApproveChange(ctx, id, "bob", "looks fine"))
	change, err := e.GetChange(ctx, id)
	require.NoError(t, err)
	assert.True(t, change.Approved)
	assert.Equal(t, "bob", change.Metadata["approved_by"])
}

func TestExecuteRollback_UnknownIDReturnsNotFound(t *testing.T) {
	e := newEngine()
	_, err := e.ExecuteRollback(context.Background(), "missing", false)
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeNotFound, apiErr.Code)
}
