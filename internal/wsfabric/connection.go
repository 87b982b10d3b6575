package wsfabric

import (
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// Transport is the narrow capability the fabric needs from the transport
// collaborator (the WebSocket handshake, framing, and TLS are explicitly
// out of scope per spec.md's Non-goals): hand a frame to the wire, or
// report the connection dead.
type Transport interface {
	WriteFrame(frame model.WSFrame) error
	Close() error
}

// connection is the fabric's private bookkeeping for one pooled
// WebSocketConnection: its public state plus the outbound queue and the
// single serializer goroutine that owns write ordering.
type connection struct {
	mu    sync.Mutex
	state model.WebSocketConnection

	subs map[string]struct{}

	transport Transport
	outbound  chan model.WSFrame
	closeOnce sync.Once
	stopped   chan struct{}

	overflowStreak int
}

func newConnection(state model.WebSocketConnection, transport Transport, queueSize int) *connection {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &connection{
		state:     state,
		subs:      make(map[string]struct{}),
		transport: transport,
		outbound:  make(chan model.WSFrame, queueSize),
		stopped:   make(chan struct{}),
	}
}

// enqueue hands a frame to this connection's outbound queue. On overflow
// it drops the oldest queued frame (never the caller's new one) so
// delivery order is preserved for everything the producer still has a
// chance to see land.
func (c *connection) enqueue(frame model.WSFrame) (dropped bool) {
	select {
	case c.outbound <- frame:
		return false
	default:
	}
	select {
	case <-c.outbound:
	default:
	}
	select {
	case c.outbound <- frame:
	default:
	}
	return true
}

// serve drains the outbound queue in order and writes each frame to the
// transport. It exits when the connection is closed or a write fails.
func (c *connection) serve(onWriteFailure func(id string), onSent func(id string)) {
	for {
		select {
		case frame, ok := <-c.outbound:
			if !ok {
				return
			}
			if err := c.transport.WriteFrame(frame); err != nil {
				onWriteFailure(c.id())
				return
			}
			onSent(c.id())
		case <-c.stopped:
			return
		}
	}
}

func (c *connection) id() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ID
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.stopped)
		if c.transport != nil {
			_ = c.transport.Close()
		}
	})
}

func (c *connection) snapshot() model.WebSocketConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Subscriptions = make([]string, 0, len(c.subs))
	for ch := range c.subs {
		s.Subscriptions = append(s.Subscriptions, ch)
	}
	return s
}

func (c *connection) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[channel] = struct{}{}
}

func (c *connection) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, channel)
}

// subscribedToAny reports whether this connection is subscribed to at
// least one of channels (OR semantics, per SPEC_FULL.md's resolution of
// spec.md's open question on send_to_subscriptions).
func (c *connection) subscribedToAny(channels []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if _, ok := c.subs[ch]; ok {
			return true
		}
	}
	return false
}

func (c *connection) touchHeartbeat(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastHeartbeatAt = at
	c.state.FailedPings = 0
}

func (c *connection) isAlive(now time.Time, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.state.LastHeartbeatAt) <= timeout
}

func (c *connection) markSent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.MessagesSent++
}

func (c *connection) setState(s model.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.State = s
}

func (c *connection) getState() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.State
}
