package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	var transitions []State
	cb := New(Config{
		Service: "store", FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Millisecond,
		OnStateChange: func(service string, from, to State) { transitions = append(transitions, to) },
	})

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, StateOpen, cb.State())
	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	require.Contains(t, transitions, StateOpen)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	cb := New(Config{Service: "store", FailureThreshold: 1, SuccessThreshold: 1, Timeout: 5 * time.Millisecond})

	boom := errors.New("boom")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return boom })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)
	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestRetry_SucceedsWithinMaxAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("permanent")
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func(ctx context.Context) error {
		attempts++
		return errors.New("fail")
	})
	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 1)
}
