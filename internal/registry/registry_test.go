package registry

import (
	"testing"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct{}

func (stubAgent) ProcessEvent(model.ComplianceEvent) (map[string]interface{}, error) { return nil, nil }
func (stubAgent) PerformHealthCheck() bool                                          { return true }
func (stubAgent) Capabilities() model.AgentCapabilities                             { return model.AgentCapabilities{} }
func (stubAgent) Shutdown()                                                         {}

func TestRegistry_ConstructUnknownType(t *testing.T) {
	r := New()
	_, err := r.Construct("missing", nil)
	require.Error(t, err)
}

func TestRegistry_RegisterAndConstruct(t *testing.T) {
	r := New()
	r.RegisterFactory("fraud", func(params map[string]interface{}) (Agent, error) {
		return stubAgent{}, nil
	})

	agent, err := r.Construct("fraud", nil)
	require.NoError(t, err)
	assert.NotNil(t, agent)

	assert.Equal(t, []string{"fraud"}, r.KnownTypes())
}

func TestRegistry_KnownTypesSorted(t *testing.T) {
	r := New()
	r.RegisterFactory("zeta", func(map[string]interface{}) (Agent, error) { return stubAgent{}, nil })
	r.RegisterFactory("alpha", func(map[string]interface{}) (Agent, error) { return stubAgent{}, nil })
	assert.Equal(t, []string{"alpha", "zeta"}, r.KnownTypes())
}
