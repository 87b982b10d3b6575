// Package orchestrator is the Agent Orchestrator: it owns agent
// registration, a bounded priority task queue, a worker pool that routes
// and executes tasks, and periodic agent health checks.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/registry"
	"github.com/robfig/cron/v3"
)

// Config tunes the orchestrator's queue, worker pool, and health checks.
type Config struct {
	QueueCapacity       int
	WorkerCount         int
	TaskTimeout         time.Duration
	HealthCheckCron     string
	MailboxCapacity     int
	UnhealthyAfterFails int
	HealthCheckInterval time.Duration
	EventTaskDeadline   time.Duration
}

// DefaultConfig mirrors the platform defaults: a 10000-deep queue, 8
// workers, a 30s per-task timeout, and a health check every 5 minutes.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:       10000,
		WorkerCount:         8,
		TaskTimeout:         30 * time.Second,
		HealthCheckCron:     "@every 5m",
		MailboxCapacity:     100,
		UnhealthyAfterFails: 5,
		HealthCheckInterval: 5 * time.Minute,
		EventTaskDeadline:   30 * time.Second,
	}
}

// agentEntry is the orchestrator's private bookkeeping for one registered
// agent; the agent itself is reached only through the narrow registry.Agent
// interface, never given a reference back to the orchestrator.
type agentEntry struct {
	registration   model.AgentRegistration
	agent          registry.Agent
	tasksInFlight  int64
}

// Orchestrator routes ComplianceEvents to registered agents via a bounded,
// priority-ordered task queue processed by a fixed worker pool.
type Orchestrator struct {
	cfg    Config
	log    *logging.Logger
	m      *metrics.Metrics

	mu       sync.RWMutex
	agents   map[string]*agentEntry
	order    []string // registration order, for routing fallback

	queue     *taskQueue
	mailboxes *mailboxHub

	cronRunner *cron.Cron
	wg         sync.WaitGroup

	shutdownRequested atomic.Bool
	tasksSubmitted    atomic.Int64
	tasksProcessed    atomic.Int64
	tasksFailed       atomic.Int64
	taskSeq           atomic.Int64

	eventSourceMu              sync.RWMutex
	eventSource                EventSource
	lastPolledHealthCheckNanos atomic.Int64

	completionSink func(model.AgentTask)
}

// New builds an Orchestrator. log and m may be nil (a no-op default is
// substituted); completionSink, if non-nil, is invoked once per task after
// it leaves RUNNING, on every exit path.
func New(cfg Config, log *logging.Logger, m *metrics.Metrics, completionSink func(model.AgentTask)) *Orchestrator {
	if log == nil {
		log = logging.New("orchestrator", "info", "text")
	}
	return &Orchestrator{
		cfg:            cfg,
		log:            log,
		m:              m,
		agents:         make(map[string]*agentEntry),
		queue:          newTaskQueue(cfg.QueueCapacity),
		mailboxes:      newMailboxHub(cfg.MailboxCapacity),
		completionSink: completionSink,
	}
}

// Initialize starts the worker pool and the periodic health-check job.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go o.worker(i)
	}

	o.cronRunner = cron.New()
	_, err := o.cronRunner.AddFunc(o.cfg.HealthCheckCron, o.runHealthChecks)
	if err != nil {
		return fmt.Errorf("orchestrator: invalid health check schedule %q: %w", o.cfg.HealthCheckCron, err)
	}
	o.cronRunner.Start()

	o.log.WithFields(map[string]interface{}{"workers": o.cfg.WorkerCount}).Info("orchestrator initialized")
	return nil
}

// Shutdown requests every worker stop accepting new tasks, drains the
// queue, and waits for in-flight executions to finish or ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.shutdownRequested.Store(true)
	o.queue.Close()
	if o.cronRunner != nil {
		cronCtx := o.cronRunner.Stop()
		<-cronCtx.Done()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.wg.Wait()
	}()

	select {
	case <-done:
		o.log.Info("orchestrator shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterAgent adds a new agent under agentType. Fails with CONFLICT if
// agentType is already registered and with VALIDATION if caps declares no
// supported event kinds.
func (o *Orchestrator) RegisterAgent(agentType, displayName string, caps model.AgentCapabilities, agent registry.Agent) error {
	if agentType == "" {
		return apierrors.Validation("agent_type must not be empty").WithField("agent_type")
	}
	if len(caps.SupportedEventKinds) == 0 {
		return apierrors.Validation("capabilities must declare at least one supported event kind").WithField("capabilities")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, existed := o.agents[agentType]; existed {
		return apierrors.Conflict(fmt.Sprintf("agent type %q is already registered", agentType))
	}
	o.agents[agentType] = &agentEntry{
		registration: model.AgentRegistration{
			AgentType:    agentType,
			DisplayName:  displayName,
			Capabilities: caps,
			Status: model.AgentStatus{
				State:               model.AgentReady,
				Health:              model.HealthHealthy,
				Enabled:             true,
				LastHealthCheckTime: time.Now(),
			},
			RegisteredAt: time.Now(),
		},
		agent: agent,
	}
	o.order = append(o.order, agentType)
	if o.m != nil {
		o.m.AgentsRegistered.Set(float64(len(o.agents)))
	}
	o.mailboxes.ensure(agentType)
	return nil
}

// UnregisterAgent removes an agent and shuts it down.
func (o *Orchestrator) UnregisterAgent(agentType string) error {
	o.mu.Lock()
	entry, ok := o.agents[agentType]
	if !ok {
		o.mu.Unlock()
		return apierrors.NotFound("agent", agentType)
	}
	delete(o.agents, agentType)
	for i, t := range o.order {
		if t == agentType {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	if o.m != nil {
		o.m.AgentsRegistered.Set(float64(len(o.agents)))
	}
	o.mu.Unlock()

	entry.agent.Shutdown()
	return nil
}

// SetAgentEnabled flips an agent's Enabled flag without unregistering it.
func (o *Orchestrator) SetAgentEnabled(agentType string, enabled bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry, ok := o.agents[agentType]
	if !ok {
		return apierrors.NotFound("agent", agentType)
	}
	entry.registration.Status.Enabled = enabled
	return nil
}

// SubmitTask enqueues a task for agentType (or, if empty, for routing to
// decide at dispatch time). Returns apierrors.RateLimitExceeded when the
// queue is full and apierrors.Processing when shutdown has been requested;
// the submitter is always informed, tasks are never silently dropped.
func (o *Orchestrator) SubmitTask(event model.ComplianceEvent, agentType string, priority model.TaskPriority, deadline time.Time) (model.AgentTask, error) {
	if o.shutdownRequested.Load() {
		return model.AgentTask{}, apierrors.Processing("orchestrator is shutting down", nil)
	}

	task := model.AgentTask{
		ID:        nextTaskID(&o.taskSeq),
		AgentType: agentType,
		Event:     event,
		Priority:  priority,
		Deadline:  deadline,
		Status:    model.TaskPending,
		CreatedAt: time.Now(),
	}

	if !o.queue.Enqueue(task) {
		return model.AgentTask{}, apierrors.RateLimitExceeded(o.cfg.QueueCapacity, "queue")
	}

	o.tasksSubmitted.Add(1)
	if o.m != nil {
		o.m.TasksSubmitted.Inc()
		o.m.QueueDepth.Set(float64(o.queue.Len()))
	}
	return task, nil
}

// nextTaskID mints "task_<unix-microseconds>_<counter>", unique for the
// life of the process.
func nextTaskID(seq *atomic.Int64) string {
	return fmt.Sprintf("task_%d_%d", time.Now().UnixMicro(), seq.Add(1))
}

func (o *Orchestrator) worker(id int) {
	defer o.wg.Done()
	for {
		task, ok := o.queue.Dequeue()
		if !ok {
			return
		}
		if o.m != nil {
			o.m.QueueDepth.Set(float64(o.queue.Len()))
		}
		o.executeTask(task)
	}
}

// findAgentForTask implements the routing algorithm: an explicit,
// registered, enabled, capable agent_type wins; otherwise the first
// registered-order agent that is enabled and capable; otherwise none.
func (o *Orchestrator) findAgentForTask(task model.AgentTask) (string, *agentEntry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if task.AgentType != "" {
		if entry, ok := o.agents[task.AgentType]; ok && entry.registration.Status.Enabled && entry.registration.Capabilities.Supports(task.Event.Kind) {
			return task.AgentType, entry, true
		}
	}
	for _, agentType := range o.order {
		entry := o.agents[agentType]
		if entry.registration.Status.Enabled && entry.registration.Capabilities.Supports(task.Event.Kind) {
			return agentType, entry, true
		}
	}
	return "", nil, false
}

func (o *Orchestrator) executeTask(task model.AgentTask) {
	agentType, entry, found := o.findAgentForTask(task)
	if !found {
		task.Status = model.TaskFailed
		task.Error = apierrors.New(apierrors.CodeNoSuitableAgent, "no suitable agent for event kind "+task.Event.Kind).Error()
		o.finishTask(task)
		return
	}

	o.mu.RLock()
	healthy := entry.registration.Status.Health != model.HealthCritical
	o.mu.RUnlock()
	if !healthy {
		task.Status = model.TaskFailed
		task.Error = apierrors.New(apierrors.CodeAgentUnavailable, fmt.Sprintf("agent %s is unavailable", agentType)).Error()
		o.finishTask(task)
		return
	}

	atomic.AddInt64(&entry.tasksInFlight, 1)
	defer atomic.AddInt64(&entry.tasksInFlight, -1)

	now := time.Now()
	task.Status = model.TaskRunning
	task.AssignedTo = agentType
	task.StartedAt = &now

	result, err := o.runWithRecovery(entry.agent, task)
	completed := time.Now()
	task.CompletedAt = &completed
	task.ProcessingTimeMs = completed.Sub(now).Milliseconds()

	if err != nil {
		task.Status = model.TaskFailed
		task.Error = err.Error()
	} else {
		task.Status = model.TaskCompleted
		task.Result = result
	}
	o.finishTask(task)
}

// runWithRecovery invokes the agent with a timeout and converts a panic
// into an error so one misbehaving agent cannot take down a worker.
func (o *Orchestrator) runWithRecovery(agent registry.Agent, task model.AgentTask) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
			o.log.WithFields(map[string]interface{}{"task_id": task.ID, "panic": r}).Error("agent panic recovered")
		}
	}()

	timeout := o.cfg.TaskTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	type out struct {
		result map[string]interface{}
		err    error
	}
	ch := make(chan out, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.log.WithFields(map[string]interface{}{"task_id": task.ID, "panic": r}).Error("agent panic recovered")
				ch <- out{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		r, e := agent.ProcessEvent(task.Event)
		ch <- out{result: r, err: e}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-time.After(timeout):
		return nil, apierrors.Timeout(fmt.Sprintf("agent execution exceeded %s", timeout))
	}
}

func (o *Orchestrator) finishTask(task model.AgentTask) {
	if task.Status == model.TaskFailed {
		o.tasksFailed.Add(1)
		if o.m != nil {
			o.m.TasksFailed.Inc()
		}
	} else {
		o.tasksProcessed.Add(1)
		if o.m != nil {
			o.m.TasksProcessed.Inc()
		}
	}
	if o.completionSink != nil {
		o.completionSink(task)
	}
}

// runHealthChecks polls every agent's PerformHealthCheck; two consecutive
// failures degrade an agent, UnhealthyAfterFails (default five) mark it
// CRITICAL. The router still selects a CRITICAL agent; executeTask then
// fails the task with AGENT_UNAVAILABLE.
func (o *Orchestrator) runHealthChecks() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for agentType, entry := range o.agents {
		healthy := entry.agent.PerformHealthCheck()
		status := &entry.registration.Status
		status.LastHealthCheckTime = time.Now()
		if healthy {
			status.ConsecutiveFailures = 0
			status.Health = model.HealthHealthy
			continue
		}
		status.ConsecutiveFailures++
		switch {
		case status.ConsecutiveFailures >= o.cfg.UnhealthyAfterFails:
			status.Health = model.HealthCritical
		case status.ConsecutiveFailures >= 2:
			status.Health = model.HealthDegraded
		}
		o.log.WithFields(map[string]interface{}{
			"agent_type":           agentType,
			"consecutive_failures": status.ConsecutiveFailures,
			"health":               status.Health,
		}).Warn("agent health check failed")
	}
}

// GetStatus reports queue depth, per-agent registrations, and aggregate
// task counters.
func (o *Orchestrator) GetStatus() map[string]interface{} {
	o.mu.RLock()
	agents := make([]model.AgentRegistration, 0, len(o.agents))
	for _, t := range o.order {
		agents = append(agents, o.agents[t].registration)
	}
	o.mu.RUnlock()

	sort.Slice(agents, func(i, j int) bool { return agents[i].AgentType < agents[j].AgentType })

	return map[string]interface{}{
		"queue_depth":     o.queue.Len(),
		"tasks_submitted": o.tasksSubmitted.Load(),
		"tasks_processed": o.tasksProcessed.Load(),
		"tasks_failed":    o.tasksFailed.Load(),
		"agents":          agents,
		"shutting_down":   o.shutdownRequested.Load(),
	}
}
