// Package collab is the Collaboration Streamer and consensus voting
// protocol: it maps session-scoped domain events (rule results, decision
// analyses, consensus progress, alerts) onto WebSocket frames targeted at
// session subscribers, and runs the weighted multi-agent voting protocol
// that produces session-scoped decisions.
package collab

import (
	"fmt"
	"sync/atomic"

	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// SessionChannel and UserChannel/AlertChannel build the reserved channel
// names from spec.md §6: "session.<session_id>", "user.<user_id>",
// "alerts.<severity>".
func SessionChannel(sessionID string) string { return "session." + sessionID }
func UserChannel(userID string) string       { return "user." + userID }
func AlertChannel(severity string) string    { return "alerts." + severity }

// Fan out is the narrow capability the Streamer needs from the WebSocket
// Fabric.
type FanOut interface {
	SendToSubscriptions(channels []string, frame model.WSFrame) int
}

// Streamer maps session/domain events to WebSocket messages.
type Streamer struct {
	fabric FanOut
	log    *logging.Logger
	seq    int64
}

// New builds a Streamer over fabric.
func New(fabric FanOut, log *logging.Logger) *Streamer {
	if log == nil {
		log = logging.New("collab_streamer", "info", "text")
	}
	return &Streamer{fabric: fabric, log: log}
}

func (s *Streamer) nextMessageID(prefix string) string {
	n := atomic.AddInt64(&s.seq, 1)
	return fmt.Sprintf("%s_%d", prefix, n)
}

func (s *Streamer) stream(channel string, frameType model.WSMessageType, senderID string, payload map[string]interface{}) int {
	frame := model.WSFrame{
		MessageID: s.nextMessageID("evt"),
		Type:      frameType,
		SenderID:  senderID,
		Payload:   payload,
	}
	return s.fabric.SendToSubscriptions([]string{channel}, frame)
}

// StreamRuleEvaluationResult notifies a session's subscribers of a rule
// evaluation outcome.
func (s *Streamer) StreamRuleEvaluationResult(sessionID, senderID string, payload map[string]interface{}) int {
	return s.stream(SessionChannel(sessionID), model.WSRuleEvaluationResult, senderID, payload)
}

// StreamDecisionAnalysisResult notifies a session's subscribers of an
// agent decision analysis.
func (s *Streamer) StreamDecisionAnalysisResult(sessionID, senderID string, payload map[string]interface{}) int {
	return s.stream(SessionChannel(sessionID), model.WSDecisionAnalysisResult, senderID, payload)
}

// StreamSessionUpdate notifies a session's subscribers of a generic
// session-state change.
func (s *Streamer) StreamSessionUpdate(sessionID, senderID string, payload map[string]interface{}) int {
	return s.stream(SessionChannel(sessionID), model.WSSessionUpdate, senderID, payload)
}

// StreamLearningFeedback notifies a session's subscribers of learning
// feedback emitted by an agent.
func (s *Streamer) StreamLearningFeedback(sessionID, senderID string, payload map[string]interface{}) int {
	return s.stream(SessionChannel(sessionID), model.WSLearningFeedback, senderID, payload)
}

// StreamAlert fans out an alert to every connection subscribed to its
// severity channel.
func (s *Streamer) StreamAlert(severity, senderID string, payload map[string]interface{}) int {
	return s.stream(AlertChannel(severity), model.WSAlert, senderID, payload)
}

// FacilitateAgentConversation streams a DIRECT_MESSAGE frame within a
// session so every subscriber can observe inter-agent dialogue as it
// happens, without needing to participate in it.
func (s *Streamer) FacilitateAgentConversation(sessionID, fromAgentID, toAgentID string, payload map[string]interface{}) int {
	frame := model.WSFrame{
		MessageID:   s.nextMessageID("conv"),
		Type:        model.WSDirectMessage,
		SenderID:    fromAgentID,
		RecipientID: toAgentID,
		Payload:     payload,
	}
	return s.fabric.SendToSubscriptions([]string{SessionChannel(sessionID)}, frame)
}
