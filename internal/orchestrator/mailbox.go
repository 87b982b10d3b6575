package orchestrator

import (
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
)

// AgentMessage is a point-to-point or broadcast message exchanged between
// agents outside the task queue, modeled on the original platform's
// send_agent_message/broadcast_to_agents/receive_agent_messages trio
// (spec.md's distillation drops this; SPEC_FULL.md D.5 recovers it).
type AgentMessage struct {
	FromAgentType string
	ToAgentType   string // empty for a broadcast delivery
	Payload       map[string]interface{}
	SentAt        time.Time
}

// mailboxHub owns one bounded inbox per agent type. Producers enqueue under
// the hub's lock; each agent drains its own inbox independently, so
// mailboxes never block the task queue.
type mailboxHub struct {
	mu       sync.Mutex
	capacity int
	inboxes  map[string][]AgentMessage
}

func newMailboxHub(capacity int) *mailboxHub {
	if capacity <= 0 {
		capacity = 100
	}
	return &mailboxHub{capacity: capacity, inboxes: make(map[string][]AgentMessage)}
}

func (h *mailboxHub) ensure(agentType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxes[agentType]; !ok {
		h.inboxes[agentType] = nil
	}
}

// deliver appends msg to toAgentType's inbox, dropping the oldest message
// when the inbox is at capacity (mailboxes favor recency over backpressure
// since, unlike the task queue, there is no submitter to inform).
func (h *mailboxHub) deliver(toAgentType string, msg AgentMessage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxes[toAgentType]; !ok {
		return false
	}
	inbox := h.inboxes[toAgentType]
	if len(inbox) >= h.capacity {
		inbox = inbox[1:]
	}
	h.inboxes[toAgentType] = append(inbox, msg)
	return true
}

func (h *mailboxHub) drain(agentType string) []AgentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	inbox := h.inboxes[agentType]
	h.inboxes[agentType] = nil
	return inbox
}

func (h *mailboxHub) knownTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.inboxes))
	for t := range h.inboxes {
		out = append(out, t)
	}
	return out
}

// SendAgentMessage delivers a message to a single agent type's mailbox.
// Returns NOT_FOUND if toAgentType has never been registered.
func (o *Orchestrator) SendAgentMessage(fromAgentType, toAgentType string, payload map[string]interface{}) error {
	msg := AgentMessage{FromAgentType: fromAgentType, ToAgentType: toAgentType, Payload: payload, SentAt: time.Now()}
	if !o.mailboxes.deliver(toAgentType, msg) {
		return apierrors.NotFound("agent", toAgentType)
	}
	return nil
}

// BroadcastToAgents delivers payload to the mailbox of every agent type
// that has been registered, except fromAgentType itself. UnregisterAgent
// does not remove a mailbox, so unregistered types still receive it.
func (o *Orchestrator) BroadcastToAgents(fromAgentType string, payload map[string]interface{}) int {
	delivered := 0
	for _, agentType := range o.mailboxes.knownTypes() {
		if agentType == fromAgentType {
			continue
		}
		msg := AgentMessage{FromAgentType: fromAgentType, ToAgentType: agentType, Payload: payload, SentAt: time.Now()}
		if o.mailboxes.deliver(agentType, msg) {
			delivered++
		}
	}
	return delivered
}

// ReceiveAgentMessages drains and returns every message queued for
// agentType since the last call.
func (o *Orchestrator) ReceiveAgentMessages(agentType string) []AgentMessage {
	return o.mailboxes.drain(agentType)
}
