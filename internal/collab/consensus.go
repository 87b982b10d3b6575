package collab

import (
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// ConsensusSession tracks an in-progress weighted vote among a fixed set
// of required agents.
type ConsensusSession struct {
	SessionID      string
	Options        []string
	RequiredAgents map[string]struct{}
	Votes          map[string]model.ConsensusVote
	Result         *model.ConsensusResult
	StartedAt      time.Time
}

func (cs *ConsensusSession) complete() bool {
	if len(cs.RequiredAgents) == 0 {
		return len(cs.Votes) > 0
	}
	for agent := range cs.RequiredAgents {
		if _, ok := cs.Votes[agent]; !ok {
			return false
		}
	}
	return true
}

// ConsensusHub runs the multi-agent voting protocol described by
// spec.md's GLOSSARY entry for "Consensus": a weighted vote producing a
// single session-scoped decision, streamed to subscribers as it
// progresses.
type ConsensusHub struct {
	streamer *Streamer

	mu       sync.Mutex
	sessions map[string]*ConsensusSession
}

// NewConsensusHub builds a hub that streams progress through streamer.
// streamer may be nil for hub-only use without WebSocket fan-out.
func NewConsensusHub(streamer *Streamer) *ConsensusHub {
	return &ConsensusHub{
		streamer: streamer,
		sessions: make(map[string]*ConsensusSession),
	}
}

// StartCollaborativeDecision opens a new voting session for sessionID
// over the given options, requiring a vote from each of requiredAgents
// (empty means any number of votes resolves it).
func (h *ConsensusHub) StartCollaborativeDecision(sessionID string, options []string, requiredAgents []string) (*ConsensusSession, error) {
	if sessionID == "" {
		return nil, apierrors.Validation("session_id must not be empty").WithField("session_id")
	}
	if len(options) == 0 {
		return nil, apierrors.Validation("options must not be empty").WithField("options")
	}

	required := make(map[string]struct{}, len(requiredAgents))
	for _, a := range requiredAgents {
		required[a] = struct{}{}
	}

	session := &ConsensusSession{
		SessionID:      sessionID,
		Options:        options,
		RequiredAgents: required,
		Votes:          make(map[string]model.ConsensusVote),
		StartedAt:      time.Now(),
	}

	h.mu.Lock()
	h.sessions[sessionID] = session
	h.mu.Unlock()

	if h.streamer != nil {
		h.streamer.StreamSessionUpdate(sessionID, "consensus_hub", map[string]interface{}{
			"event":   "consensus_started",
			"options": options,
		})
	}
	return session, nil
}

// ContributeToDecision records vote and, once every required agent has
// voted, tallies and streams the result. Returns the tallied result only
// once the session completes; otherwise returns (nil, false, nil).
func (h *ConsensusHub) ContributeToDecision(sessionID string, vote model.ConsensusVote) (*model.ConsensusResult, bool, error) {
	h.mu.Lock()
	session, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return nil, false, apierrors.NotFound("consensus_session", sessionID)
	}
	if vote.Weight <= 0 {
		vote.Weight = 1
	}
	session.Votes[vote.AgentID] = vote
	done := session.complete()
	h.mu.Unlock()

	if h.streamer != nil {
		h.streamer.StreamSessionUpdate(sessionID, vote.AgentID, map[string]interface{}{
			"event":    "vote_cast",
			"agent_id": vote.AgentID,
			"decision": vote.Decision,
		})
	}

	if !done {
		return nil, false, nil
	}

	result := tally(session)

	h.mu.Lock()
	session.Result = result
	h.mu.Unlock()

	if h.streamer != nil {
		h.streamer.stream(SessionChannel(sessionID), model.WSConsensusUpdate, "consensus_hub", map[string]interface{}{
			"event":          "consensus_reached",
			"winning_option": result.WinningOption,
			"score":          result.Score,
		})
	}
	return result, true, nil
}

// tally sums each vote's weight*confidence per option and picks the
// highest-scoring option; score is that sum normalized by total weight.
func tally(session *ConsensusSession) *model.ConsensusResult {
	scores := make(map[string]float64, len(session.Options))
	var totalWeight float64
	votes := make([]model.ConsensusVote, 0, len(session.Votes))
	for _, v := range session.Votes {
		scores[v.Decision] += v.Weight * v.Confidence
		totalWeight += v.Weight
		votes = append(votes, v)
	}

	var winner string
	var best float64
	first := true
	for _, option := range session.Options {
		s := scores[option]
		if first || s > best {
			winner = option
			best = s
			first = false
		}
	}

	score := 0.0
	if totalWeight > 0 {
		score = best / totalWeight
	}

	return &model.ConsensusResult{
		SessionID:     session.SessionID,
		Votes:         votes,
		WinningOption: winner,
		Score:         score,
		ReachedAt:     time.Now(),
	}
}

// GetCollaborativeDecisionResult returns the tallied result for a
// session, if voting has completed.
func (h *ConsensusHub) GetCollaborativeDecisionResult(sessionID string) (*model.ConsensusResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[sessionID]
	if !ok || session.Result == nil {
		return nil, false
	}
	return session.Result, true
}
