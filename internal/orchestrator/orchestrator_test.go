package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent is a minimal registry.Agent for orchestrator tests.
type fakeAgent struct {
	mu       sync.Mutex
	calls    int
	delay    time.Duration
	fail     error
	panics   bool
	healthy  bool
	caps     model.AgentCapabilities
}

func (a *fakeAgent) ProcessEvent(event model.ComplianceEvent) (map[string]interface{}, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.panics {
		panic("boom")
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.fail != nil {
		return nil, a.fail
	}
	return map[string]interface{}{"ok": true}, nil
}

func (a *fakeAgent) PerformHealthCheck() bool      { return a.healthy }
func (a *fakeAgent) Capabilities() model.AgentCapabilities { return a.caps }
func (a *fakeAgent) Shutdown()                     {}

func newOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	o := New(cfg, nil, nil, nil)
	require.NoError(t, o.Initialize(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	})
	return o
}

func TestRegisterAgent_ConflictAndValidation(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps}

	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))

	err := o.RegisterAgent("fraud", "Fraud Agent", caps, agent)
	require.Error(t, err)
	assert.Equal(t, apierrors.CodeConflict, err.(*apierrors.Error).Code)

	err = o.RegisterAgent("empty_caps", "No Caps", model.AgentCapabilities{}, agent)
	require.Error(t, err)
	assert.Equal(t, apierrors.CodeValidation, err.(*apierrors.Error).Code)
}

func TestSubmitTask_IncrementsCounterAndRoutes(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps}
	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))

	event := model.ComplianceEvent{Kind: "transaction", Severity: model.SeverityInfo}
	task, err := o.SubmitTask(event, "", model.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)

	require.Eventually(t, func() bool {
		status := o.GetStatus()
		return status["tasks_processed"].(int64) == 1
	}, time.Second, 5*time.Millisecond)

	status := o.GetStatus()
	assert.Equal(t, int64(1), status["tasks_submitted"])
	assert.Equal(t, int64(0), status["tasks_failed"])
}

func TestSubmitTask_NoSuitableAgentFailsTask(t *testing.T) {
	var completed model.AgentTask
	done := make(chan struct{})
	cfg := DefaultConfig()
	o := New(cfg, nil, nil, func(task model.AgentTask) {
		completed = task
		close(done)
	})
	require.NoError(t, o.Initialize(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	event := model.ComplianceEvent{Kind: "unknown_kind"}
	_, err := o.SubmitTask(event, "", model.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}
	assert.Equal(t, model.TaskFailed, completed.Status)
	assert.Contains(t, completed.Error, "NO_SUITABLE_AGENT")
}

func TestExecuteTask_PanicBecomesFailureNotWorkerDeath(t *testing.T) {
	var mu sync.Mutex
	var completions []model.AgentTask
	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	o := New(cfg, nil, nil, func(task model.AgentTask) {
		mu.Lock()
		completions = append(completions, task)
		mu.Unlock()
	})
	require.NoError(t, o.Initialize(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps, panics: true}
	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))

	_, err := o.SubmitTask(model.ComplianceEvent{Kind: "transaction"}, "", model.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)

	// The worker must survive the panic and keep processing tasks.
	_, err = o.SubmitTask(model.ComplianceEvent{Kind: "transaction"}, "", model.PriorityNormal, time.Now().Add(time.Minute))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(completions) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.TaskFailed, completions[0].Status)
	assert.Contains(t, completions[0].Error, "panicked")
}

func TestSubmitTask_QueueOverflowSurfacesToSubmitter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 2
	cfg.WorkerCount = 1
	o := New(cfg, nil, nil, nil)
	require.NoError(t, o.Initialize(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	}()

	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps, delay: 200 * time.Millisecond}
	require.NoError(t, o.RegisterAgent("slow", "Slow Agent", caps, agent))

	event := model.ComplianceEvent{Kind: "transaction"}
	// First task is immediately dequeued by the single worker, so it
	// does not occupy queue capacity; the next two fill the bounded
	// queue, and the fourth must be rejected.
	accepted := 0
	var lastErr error
	for i := 0; i < 4; i++ {
		_, err := o.SubmitTask(event, "", model.PriorityNormal, time.Now().Add(time.Minute))
		if err == nil {
			accepted++
		} else {
			lastErr = err
		}
	}
	require.Error(t, lastErr)
	assert.Equal(t, apierrors.CodeRateLimit, lastErr.(*apierrors.Error).Code)
	assert.Less(t, accepted, 4)
}

func TestSetAgentEnabled_RouterSkipsDisabled(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps}
	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))
	require.NoError(t, o.SetAgentEnabled("fraud", false))

	_, _, found := o.findAgentForTask(model.AgentTask{Event: model.ComplianceEvent{Kind: "transaction"}})
	assert.False(t, found)
}

func TestUnregisterAgent_ShutsDownAndRemoves(t *testing.T) {
	o := newOrchestrator(t, DefaultConfig())
	caps := model.AgentCapabilities{SupportedEventKinds: []string{"transaction"}}
	agent := &fakeAgent{healthy: true, caps: caps}
	require.NoError(t, o.RegisterAgent("fraud", "Fraud Agent", caps, agent))
	require.NoError(t, o.UnregisterAgent("fraud"))

	err := o.UnregisterAgent("fraud")
	require.Error(t, err)
	assert.Equal(t, apierrors.CodeNotFound, err.(*apierrors.Error).Code)
}

var _ registry.Agent = (*fakeAgent)(nil)
