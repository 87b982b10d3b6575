package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// MemoryGateway is an in-memory Gateway implementation, the default for
// tests and local development. All methods are safe for concurrent use.
type MemoryGateway struct {
	mu sync.RWMutex

	rules            map[string]model.RuleDefinition
	agents           map[string]model.AgentRegistration
	tasks            map[string]model.AgentTask
	changes          map[string]model.ChangeRecord
	snapshots        map[string][]model.EntitySnapshot // key: entityKind/entityID
	rollbacks        map[string]model.RollbackRequest
	translationRules map[string]model.TranslationRule
}

// NewMemoryGateway creates an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		rules:            make(map[string]model.RuleDefinition),
		agents:           make(map[string]model.AgentRegistration),
		tasks:            make(map[string]model.AgentTask),
		changes:          make(map[string]model.ChangeRecord),
		snapshots:        make(map[string][]model.EntitySnapshot),
		rollbacks:        make(map[string]model.RollbackRequest),
		translationRules: make(map[string]model.TranslationRule),
	}
}

func snapKey(kind, id string) string { return kind + "/" + id }

// --- rules -------------------------------------------------------------

func (g *MemoryGateway) GetRule(ctx context.Context, id string) (*model.RuleDefinition, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rules[id]
	if !ok {
		return nil, NewNotFoundError("rule", id)
	}
	return &r, nil
}

func (g *MemoryGateway) ListRules(ctx context.Context, onlyEnabled bool) ([]model.RuleDefinition, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.RuleDefinition, 0, len(g.rules))
	for _, r := range g.rules {
		if onlyEnabled && !r.Active {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) CreateRule(ctx context.Context, rule *model.RuleDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rules[rule.ID]; ok {
		return ErrAlreadyExists
	}
	g.rules[rule.ID] = *rule
	return nil
}

func (g *MemoryGateway) UpdateRule(ctx context.Context, rule *model.RuleDefinition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rules[rule.ID]; !ok {
		return NewNotFoundError("rule", rule.ID)
	}
	g.rules[rule.ID] = *rule
	return nil
}

func (g *MemoryGateway) DeleteRule(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rules[id]; !ok {
		return NewNotFoundError("rule", id)
	}
	delete(g.rules, id)
	return nil
}

// --- agents --------------------------------------------------------------

func (g *MemoryGateway) GetAgent(ctx context.Context, id string) (*model.AgentRegistration, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.agents[id]
	if !ok {
		return nil, NewNotFoundError("agent", id)
	}
	return &a, nil
}

func (g *MemoryGateway) ListAgents(ctx context.Context) ([]model.AgentRegistration, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.AgentRegistration, 0, len(g.agents))
	for _, a := range g.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentType < out[j].AgentType })
	return out, nil
}

func (g *MemoryGateway) UpsertAgent(ctx context.Context, agent *model.AgentRegistration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.agents[agent.AgentType] = *agent
	return nil
}

func (g *MemoryGateway) DeleteAgent(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.agents[id]; !ok {
		return NewNotFoundError("agent", id)
	}
	delete(g.agents, id)
	return nil
}

// --- tasks -----------------------------------------------------------------

func (g *MemoryGateway) GetTask(ctx context.Context, id string) (*model.AgentTask, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, NewNotFoundError("task", id)
	}
	return &t, nil
}

func (g *MemoryGateway) ListTasks(ctx context.Context, status model.TaskStatus, limit int) ([]model.AgentTask, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.AgentTask, 0)
	for _, t := range g.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) CreateTask(ctx context.Context, task *model.AgentTask) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[task.ID]; ok {
		return ErrAlreadyExists
	}
	g.tasks[task.ID] = *task
	return nil
}

func (g *MemoryGateway) UpdateTask(ctx context.Context, task *model.AgentTask) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tasks[task.ID]; !ok {
		return NewNotFoundError("task", task.ID)
	}
	g.tasks[task.ID] = *task
	return nil
}

// --- audit -----------------------------------------------------------------

func (g *MemoryGateway) AppendChange(ctx context.Context, change *model.ChangeRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.changes[change.ID]; ok {
		return ErrAlreadyExists
	}
	g.changes[change.ID] = *change
	return nil
}

func (g *MemoryGateway) GetChange(ctx context.Context, id string) (*model.ChangeRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.changes[id]
	if !ok {
		return nil, NewNotFoundError("change", id)
	}
	return &c, nil
}

func (g *MemoryGateway) ListChanges(ctx context.Context, entityKind, entityID string) ([]model.ChangeRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.ChangeRecord, 0)
	for _, c := range g.changes {
		if c.EntityKind == entityKind && c.EntityID == entityID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (g *MemoryGateway) ListAllChanges(ctx context.Context) ([]model.ChangeRecord, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.ChangeRecord, 0, len(g.changes))
	for _, c := range g.changes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (g *MemoryGateway) UpdateChange(ctx context.Context, change *model.ChangeRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.changes[change.ID]; !ok {
		return NewNotFoundError("change", change.ID)
	}
	g.changes[change.ID] = *change
	return nil
}

func (g *MemoryGateway) PutSnapshot(ctx context.Context, snap *model.EntitySnapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := snapKey(snap.EntityKind, snap.EntityID)
	g.snapshots[key] = append(g.snapshots[key], *snap)
	sort.Slice(g.snapshots[key], func(i, j int) bool {
		return g.snapshots[key][i].VersionNumber < g.snapshots[key][j].VersionNumber
	})
	return nil
}

func (g *MemoryGateway) GetSnapshot(ctx context.Context, entityKind, entityID string, version int) (*model.EntitySnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, s := range g.snapshots[snapKey(entityKind, entityID)] {
		if s.VersionNumber == version {
			snap := s
			return &snap, nil
		}
	}
	return nil, NewNotFoundError("snapshot", snapKey(entityKind, entityID))
}

func (g *MemoryGateway) LatestSnapshot(ctx context.Context, entityKind, entityID string) (*model.EntitySnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	list := g.snapshots[snapKey(entityKind, entityID)]
	if len(list) == 0 {
		return nil, NewNotFoundError("snapshot", snapKey(entityKind, entityID))
	}
	snap := list[len(list)-1]
	return &snap, nil
}

func (g *MemoryGateway) ListSnapshots(ctx context.Context, entityKind, entityID string) ([]model.EntitySnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	list := g.snapshots[snapKey(entityKind, entityID)]
	out := make([]model.EntitySnapshot, len(list))
	copy(out, list)
	return out, nil
}

func (g *MemoryGateway) CreateRollback(ctx context.Context, rb *model.RollbackRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rollbacks[rb.ID]; ok {
		return ErrAlreadyExists
	}
	g.rollbacks[rb.ID] = *rb
	return nil
}

func (g *MemoryGateway) UpdateRollback(ctx context.Context, rb *model.RollbackRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rollbacks[rb.ID]; !ok {
		return NewNotFoundError("rollback", rb.ID)
	}
	g.rollbacks[rb.ID] = *rb
	return nil
}

func (g *MemoryGateway) GetRollback(ctx context.Context, id string) (*model.RollbackRequest, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rb, ok := g.rollbacks[id]
	if !ok {
		return nil, NewNotFoundError("rollback", id)
	}
	return &rb, nil
}

// --- translation rules ------------------------------------------------

func (g *MemoryGateway) GetTranslationRule(ctx context.Context, id string) (*model.TranslationRule, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.translationRules[id]
	if !ok {
		return nil, NewNotFoundError("translation_rule", id)
	}
	return &r, nil
}

func (g *MemoryGateway) ListTranslationRules(ctx context.Context) ([]model.TranslationRule, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]model.TranslationRule, 0, len(g.translationRules))
	for _, r := range g.translationRules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) UpsertTranslationRule(ctx context.Context, rule *model.TranslationRule) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.translationRules[rule.ID] = *rule
	return nil
}

func (g *MemoryGateway) DeleteTranslationRule(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.translationRules[id]; !ok {
		return NewNotFoundError("translation_rule", id)
	}
	delete(g.translationRules, id)
	return nil
}

// HealthCheck always succeeds for the in-memory gateway.
func (g *MemoryGateway) HealthCheck(ctx context.Context) error { return nil }
