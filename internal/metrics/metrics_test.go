package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllCollectorsWithoutCollision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_NilRegistererSkipsRegistration(t *testing.T) {
	assert.NotPanics(t, func() { New(nil) })
}

func TestMetrics_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TasksSubmitted.Inc()
	m.TasksSubmitted.Inc()

	var metric dto.Metric
	require.NoError(t, m.TasksSubmitted.Write(&metric))
	assert.Equal(t, float64(2), metric.Counter.GetValue())
}
