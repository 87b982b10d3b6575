package wsfabric

import (
	"sync"
	"testing"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport captures every frame written to it, in order.
type recordingTransport struct {
	mu     sync.Mutex
	frames []model.WSFrame
	closed bool
	failOn string // MessageID that should fail the write
}

func (r *recordingTransport) WriteFrame(frame model.WSFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && frame.MessageID == r.failOn {
		return assert.AnError
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingTransport) snapshot() []model.WSFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.WSFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

func addAuthenticatedConn(t *testing.T, f *Fabric, userID, sessionID string) (string, *recordingTransport) {
	t.Helper()
	state := f.CreateConnection(userID, sessionID)
	transport := &recordingTransport{}
	require.True(t, f.AddConnection(state, transport))
	require.True(t, f.AuthenticateConnection(state.ID, userID))
	return state.ID, transport
}

func TestBroadcast_FanOutPreservesPerConnectionOrder(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	idA, transportA := addAuthenticatedConn(t, f, "userA", "s1")
	idB, transportB := addAuthenticatedConn(t, f, "userB", "s1")
	require.True(t, f.Subscribe(idA, "session.s1"))
	require.True(t, f.Subscribe(idB, "session.s1"))

	for i, mid := range []string{"m1", "m2", "m3"} {
		n := f.BroadcastMessage(model.WSFrame{MessageID: mid, Type: model.WSBroadcast, Payload: map[string]interface{}{"seq": i}})
		assert.Equal(t, 2, n)
	}

	require.Eventually(t, func() bool {
		return len(transportA.snapshot()) == 3 && len(transportB.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)

	for _, transport := range []*recordingTransport{transportA, transportB} {
		frames := transport.snapshot()
		assert.Equal(t, []string{"m1", "m2", "m3"}, []string{frames[0].MessageID, frames[1].MessageID, frames[2].MessageID})
	}

	require.Eventually(t, func() bool {
		connA, _ := f.Snapshot(idA)
		connB, _ := f.Snapshot(idB)
		return connA.MessagesSent == 3 && connB.MessagesSent == 3
	}, time.Second, 5*time.Millisecond)
}

func TestSendToSubscriptions_ORSemantics(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	idA, transportA := addAuthenticatedConn(t, f, "userA", "s1")
	idB, transportB := addAuthenticatedConn(t, f, "userB", "s1")
	require.True(t, f.Subscribe(idA, "alerts.high"))
	require.True(t, f.Subscribe(idB, "alerts.low"))

	n := f.SendToSubscriptions([]string{"alerts.high", "alerts.low"}, model.WSFrame{MessageID: "m1"})
	assert.Equal(t, 2, n)

	require.Eventually(t, func() bool {
		return len(transportA.snapshot()) == 1 && len(transportB.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRemoveConnection_UnknownReturnsFalse(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	assert.False(t, f.RemoveConnection("missing"))
}

func TestAddConnection_RejectsBeyondMaxConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	f := New(cfg, nil, nil, nil, nil)

	state1 := f.CreateConnection("u1", "s1")
	require.True(t, f.AddConnection(state1, &recordingTransport{}))

	state2 := f.CreateConnection("u2", "s1")
	assert.False(t, f.AddConnection(state2, &recordingTransport{}))
}

func TestSubscribeUnsubscribe_MissingConnection(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	assert.False(t, f.Subscribe("missing", "chan"))
	assert.False(t, f.Unsubscribe("missing", "chan"))
}

func TestOnWriteFailure_RemovesConnection(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	state := f.CreateConnection("u1", "s1")
	transport := &recordingTransport{failOn: "bad"}
	require.True(t, f.AddConnection(state, transport))
	require.True(t, f.AuthenticateConnection(state.ID, "u1"))

	f.BroadcastMessage(model.WSFrame{MessageID: "bad"})

	require.Eventually(t, func() bool {
		return f.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSendToUser_DeliversToEveryUserConnection(t *testing.T) {
	f := New(DefaultConfig(), nil, nil, nil, nil)
	id1, t1 := addAuthenticatedConn(t, f, "userA", "s1")
	id2, t2 := addAuthenticatedConn(t, f, "userA", "s2")
	_ = id1
	_ = id2

	n := f.SendToUser("userA", model.WSFrame{MessageID: "m1"})
	assert.Equal(t, 2, n)
	require.Eventually(t, func() bool {
		return len(t1.snapshot()) == 1 && len(t2.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}
