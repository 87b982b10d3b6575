// Package resilience provides the circuit breakers and retry policy shared
// by every component that calls out to the store gateway, the metrics
// source, or another agent endpoint.
//
// It is a thin adapter over github.com/sony/gobreaker/v2 (circuit breaking)
// and github.com/cenkalti/backoff/v4 (exponential backoff), preserving a
// small hand-rolled API so callers never touch the underlying libraries
// directly.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// State mirrors the three circuit-breaker states from the data model.
type State int

const (
	StateClosed   State = State(gobreaker.StateClosed)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
	StateOpen     State = State(gobreaker.StateOpen)
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config configures a CircuitBreaker. Field names mirror the Circuit Breaker
// data model: failure_threshold, success_threshold, timeout.
type Config struct {
	Service          string
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	OnStateChange    func(service string, from, to State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// CircuitBreaker guards calls to a single external service.
type CircuitBreaker struct {
	service string
	gb      *gobreaker.CircuitBreaker[any]
}

// New creates a CircuitBreaker. Each CircuitBreaker owns its own lock
// (enforced by the underlying gobreaker instance) so distinct services never
// contend with each other.
func New(cfg Config) *CircuitBreaker {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Service,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, State(from), State(to))
		}
	}

	return &CircuitBreaker{service: cfg.service(), gb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (c Config) service() string {
	if c.Service == "" {
		return "unknown"
	}
	return c.Service
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State { return State(cb.gb.State()) }

// Execute runs fn under circuit-breaker protection. ctx is honored by the
// caller's fn (gobreaker itself is context-agnostic); callers should enforce
// their own deadline inside fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := cb.gb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrTooManyRequests
	}
	return err
}

// ---------------------------------------------------------------------------
// Retry
// ---------------------------------------------------------------------------

// RetryConfig mirrors the retry policy in the error-handling design:
// max_attempts, initial_delay, multiplier, max_delay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the platform default: 3 attempts, 100ms initial
// delay, 2x multiplier, 30s cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// Retry executes fn with exponential backoff, honoring ctx cancellation.
// Only retries while ctx is live and attempts remain.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.InitialDelay > 0 {
		bo.InitialInterval = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		bo.MaxInterval = cfg.MaxDelay
	}
	if cfg.Multiplier > 0 {
		bo.Multiplier = cfg.Multiplier
	}
	bo.MaxElapsedTime = 0

	withMax := backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1))
	withCtx := backoff.WithContext(withMax, ctx)

	return backoff.Retry(func() error {
		return fn(ctx)
	}, withCtx)
}
