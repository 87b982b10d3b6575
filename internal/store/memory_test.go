package store

import (
	"context"
	"testing"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGateway_RuleCRUD(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	rule := &model.RuleDefinition{ID: "r1", Name: "large txn", Kind: model.RuleKindValidation, Active: true}
	require.NoError(t, g.CreateRule(ctx, rule))

	err := g.CreateRule(ctx, rule)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	got, err := g.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "large txn", got.Name)

	_, err = g.GetRule(ctx, "missing")
	assert.True(t, IsNotFound(err))

	got.Active = false
	require.NoError(t, g.UpdateRule(ctx, got))
	list, err := g.ListRules(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, g.DeleteRule(ctx, "r1"))
	assert.True(t, IsNotFound(g.DeleteRule(ctx, "r1")))
}

func TestMemoryGateway_Snapshots(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	now := time.Now()
	require.NoError(t, g.PutSnapshot(ctx, &model.EntitySnapshot{EntityKind: "rule", EntityID: "r1", VersionNumber: 1, CreatedAt: now}))
	require.NoError(t, g.PutSnapshot(ctx, &model.EntitySnapshot{EntityKind: "rule", EntityID: "r1", VersionNumber: 2, CreatedAt: now}))

	latest, err := g.LatestSnapshot(ctx, "rule", "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.VersionNumber)

	v1, err := g.GetSnapshot(ctx, "rule", "r1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)

	all, err := g.ListSnapshots(ctx, "rule", "r1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryGateway_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	task := &model.AgentTask{ID: "t1", Status: model.TaskPending, CreatedAt: time.Now()}
	require.NoError(t, g.CreateTask(ctx, task))

	task.Status = model.TaskCompleted
	require.NoError(t, g.UpdateTask(ctx, task))

	got, err := g.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.Status)

	list, err := g.ListTasks(ctx, model.TaskCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
