// Package metricsource provides the platform's abstraction over an
// external named-query scalar metrics service: the system the Rule
// Execution Engine consults for aggregate figures (e.g. "average
// transaction amount for this account over 30 days") that a single
// ComplianceEvent payload cannot supply on its own.
//
// This is distinct from internal/metrics, which is the platform's own
// Prometheus self-instrumentation.
package metricsource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/resilience"
)

// Query names a scalar metric to retrieve, scoped to an entity and an
// optional time window.
type Query struct {
	Name     string
	EntityID string
	Window   time.Duration
}

// Result is a single scalar metric value, with the time it was computed.
type Result struct {
	Name      string
	Value     float64
	ComputedAt time.Time
}

// Source is the external collaborator the rule engine queries for named
// scalar metrics it cannot compute from a single event payload.
type Source interface {
	Query(ctx context.Context, q Query) (Result, error)
}

// Provider is a single named scalar computation a Source can serve.
type Provider func(ctx context.Context, q Query) (float64, error)

// Registry is an in-process Source backed by registered Providers, used
// for local development and tests. Production deployments may instead
// wire a Source backed by a real metrics warehouse.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	breaker   *resilience.CircuitBreaker
}

// NewRegistry creates an empty Registry guarded by a circuit breaker,
// since a metric source is an external collaborator that can fail or
// stall like any other.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		breaker:   resilience.New(resilience.Config{Service: "metricsource"}),
	}
}

// Register adds or replaces the provider for a metric name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Query resolves q against the registered provider, under circuit-breaker
// protection.
func (r *Registry) Query(ctx context.Context, q Query) (Result, error) {
	r.mu.RLock()
	p, ok := r.providers[q.Name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, apierrors.New(apierrors.CodeNotFound, fmt.Sprintf("metric %q has no provider", q.Name))
	}

	var value float64
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		v, err := p(ctx, q)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return Result{}, apierrors.ExternalAPI("metricsource", err)
	}
	return Result{Name: q.Name, Value: value, ComputedAt: time.Now()}, nil
}
