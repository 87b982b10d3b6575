package metricsource

import (
	"context"
	"errors"
	"testing"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_UnknownMetricReturnsNotFound(t *testing.T) {
	r := NewRegistry()
	_, err := r.Query(context.Background(), Query{Name: "missing"})
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeNotFound, apiErr.Code)
}

func TestQuery_RegisteredProviderResolvesValue(t *testing.T) {
	r := NewRegistry()
	r.Register("avg_txn_30d", func(ctx context.Context, q Query) (float64, error) {
		assert.Equal(t, "acct-1", q.EntityID)
		return 42.5, nil
	})

	result, err := r.Query(context.Background(), Query{Name: "avg_txn_30d", EntityID: "acct-1"})
	require.NoError(t, err)
	assert.Equal(t, 42.5, result.Value)
	assert.Equal(t, "avg_txn_30d", result.Name)
}

func TestQuery_ProviderErrorWrapsAsExternalAPI(t *testing.T) {
	r := NewRegistry()
	r.Register("flaky", func(ctx context.Context, q Query) (float64, error) {
		return 0, errors.New("warehouse unreachable")
	})

	_, err := r.Query(context.Background(), Query{Name: "flaky"})
	require.Error(t, err)
	apiErr, ok := apierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apierrors.CodeExternalAPI, apiErr.Code)
}

func TestRegister_ReplacesExistingProvider(t *testing.T) {
	r := NewRegistry()
	r.Register("x", func(ctx context.Context, q Query) (float64, error) { return 1, nil })
	r.Register("x", func(ctx context.Context, q Query) (float64, error) { return 2, nil })

	result, err := r.Query(context.Background(), Query{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), result.Value)
}
