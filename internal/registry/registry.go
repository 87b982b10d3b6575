// Package registry is the Agent Registry: it maps an agent type to a
// factory and constructs agents on demand for the orchestrator.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// Agent is the narrow capability the orchestrator needs from any agent
// implementation: process one event, report health, and describe what
// it can handle. It never holds a reference back to the orchestrator.
type Agent interface {
	ProcessEvent(event model.ComplianceEvent) (map[string]interface{}, error)
	PerformHealthCheck() bool
	Capabilities() model.AgentCapabilities
	Shutdown()
}

// Factory constructs a new Agent instance for an agent type, given
// whatever construction parameters the caller supplies.
type Factory func(params map[string]interface{}) (Agent, error)

// Registry maps agent type to a Factory. It does not keep the instances
// Construct returns.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterFactory adds or replaces the factory for an agent type.
func (r *Registry) RegisterFactory(agentType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[agentType] = factory
}

// Construct builds a new Agent for agentType using its registered
// factory.
func (r *Registry) Construct(agentType string, params map[string]interface{}) (Agent, error) {
	r.mu.RLock()
	factory, ok := r.factories[agentType]
	r.mu.RUnlock()
	if !ok {
		return nil, apierrors.New(apierrors.CodeNotFound, fmt.Sprintf("no factory registered for agent type %q", agentType))
	}
	return factory(params)
}

// KnownTypes returns every agent type with a registered factory, sorted.
func (r *Registry) KnownTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
