package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessPendingEvents_DrainsRoutesAndSubmits(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps}
	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))

	src := NewBufferedEventSource()
	o.SetEventSource(src)
	src.Push(model.ComplianceEvent{Kind: "transaction", Severity: model.SeverityCritical})
	src.Push(model.ComplianceEvent{Kind: "transaction", Severity: model.SeverityInfo})

	require.NoError(t, o.ProcessPendingEvents(context.Background()))

	require.Eventually(t, func() bool {
		status := o.GetStatus()
		return status["tasks_processed"].(int64) == 2
	}, time.Second, 5*time.Millisecond)

	status := o.GetStatus()
	assert.Equal(t, int64(2), status["tasks_submitted"])
}

func TestProcessPendingEvents_NoEventSourceIsNoop(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	require.NoError(t, o.ProcessPendingEvents(context.Background()))
	status := o.GetStatus()
	assert.Equal(t, int64(0), status["tasks_submitted"])
}

func TestProcessPendingEvents_UnroutableEventStillSubmitsAndFails(t *testing.T) {
	var completed model.AgentTask
	done := make(chan struct{})
	o := New(DefaultConfig(), nil, nil, func(task model.AgentTask) {
		completed = task
		close(done)
	})
	require.NoError(t, o.Initialize(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	src := NewBufferedEventSource()
	o.SetEventSource(src)
	src.Push(model.ComplianceEvent{Kind: "unknown_kind"})

	require.NoError(t, o.ProcessPendingEvents(context.Background()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}
	assert.Equal(t, model.TaskFailed, completed.Status)
	assert.Contains(t, completed.Error, "NO_SUITABLE_AGENT")
}

func TestBufferedEventSource_DrainClearsBuffer(t *testing.T) {
	src := NewBufferedEventSource()
	src.Push(model.ComplianceEvent{Kind: "a"})
	src.Push(model.ComplianceEvent{Kind: "b"})

	drained, err := src.DrainEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, drained, 2)

	drained, err = src.DrainEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drained)
}
