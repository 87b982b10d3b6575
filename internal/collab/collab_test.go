package collab

import (
	"testing"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFanOut struct {
	frames []model.WSFrame
	chans  [][]string
}

func (f *fakeFanOut) SendToSubscriptions(channels []string, frame model.WSFrame) int {
	f.frames = append(f.frames, frame)
	f.chans = append(f.chans, channels)
	return len(channels)
}

func TestStreamer_ChannelNaming(t *testing.T) {
	assert.Equal(t, "session.s1", SessionChannel("s1"))
	assert.Equal(t, "user.u1", UserChannel("u1"))
	assert.Equal(t, "alerts.HIGH", AlertChannel("HIGH"))
}

func TestStreamer_EmitsExpectedFrameTypes(t *testing.T) {
	fo := &fakeFanOut{}
	s := New(fo, nil)

	s.StreamRuleEvaluationResult("s1", "engine", map[string]interface{}{"outcome": "FAIL"})
	s.StreamAlert("HIGH", "engine", map[string]interface{}{"msg": "x"})

	require.Len(t, fo.frames, 2)
	assert.Equal(t, model.WSRuleEvaluationResult, fo.frames[0].Type)
	assert.Equal(t, []string{"session.s1"}, fo.chans[0])
	assert.Equal(t, model.WSAlert, fo.frames[1].Type)
	assert.Equal(t, []string{"alerts.HIGH"}, fo.chans[1])
}

func TestConsensusHub_RequiresAllVotesBeforeTallying(t *testing.T) {
	fo := &fakeFanOut{}
	streamer := New(fo, nil)
	hub := NewConsensusHub(streamer)

	session, err := hub.StartCollaborativeDecision("s1", []string{"APPROVE", "BLOCK"}, []string{"agentA", "agentB"})
	require.NoError(t, err)
	assert.Equal(t, "s1", session.SessionID)

	_, done, err := hub.ContributeToDecision("s1", model.ConsensusVote{AgentID: "agentA", Decision: "BLOCK", Confidence: 0.9, Weight: 1})
	require.NoError(t, err)
	assert.False(t, done)

	result, done, err := hub.ContributeToDecision("s1", model.ConsensusVote{AgentID: "agentB", Decision: "APPROVE", Confidence: 0.5, Weight: 1})
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, "BLOCK", result.WinningOption)

	got, ok := hub.GetCollaborativeDecisionResult("s1")
	require.True(t, ok)
	assert.Equal(t, "BLOCK", got.WinningOption)
}

func TestConsensusHub_UnknownSessionIsNotFound(t *testing.T) {
	hub := NewConsensusHub(nil)
	_, _, err := hub.ContributeToDecision("missing", model.ConsensusVote{AgentID: "a"})
	require.Error(t, err)
}

func TestConsensusHub_EmptyOptionsRejected(t *testing.T) {
	hub := NewConsensusHub(nil)
	_, err := hub.StartCollaborativeDecision("s1", nil, nil)
	require.Error(t, err)
}
