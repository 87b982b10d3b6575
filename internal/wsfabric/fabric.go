// Package wsfabric is the WebSocket Fabric: connection pool, subscription
// routing, heartbeats, liveness sweeping, and fan-out. The transport-level
// handshake and TLS are out of scope (spec.md's Non-goals); this package
// owns everything from AddConnection onward.
package wsfabric

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Config tunes the fabric's pool size, outbound queue depth, and timers.
type Config struct {
	MaxConnections     int
	OutboundQueueSize  int
	HeartbeatCron      string
	LivenessCron       string
	ConnectionTimeout  time.Duration
	MaxOverflowStreak  int
}

// DefaultConfig mirrors spec.md §4.4's stated defaults: 5000 connections,
// 1000-deep outbound queues, 30s heartbeats, 300s liveness timeout.
func DefaultConfig() Config {
	return Config{
		MaxConnections:    5000,
		OutboundQueueSize: 1000,
		HeartbeatCron:     "@every 30s",
		LivenessCron:      "@every 30s",
		ConnectionTimeout: 300 * time.Second,
		MaxOverflowStreak: 5,
	}
}

// Fabric owns the live connection pool and every subscription index.
type Fabric struct {
	cfg Config
	log *logging.Logger
	m   *metrics.Metrics

	mu       sync.RWMutex
	conns    map[string]*connection
	byUser   map[string]map[string]struct{}

	cronRunner *cron.Cron

	onConnect    func(model.WebSocketConnection)
	onDisconnect func(model.WebSocketConnection)

	heartbeatSeq int64
}

// New builds a Fabric. onConnect/onDisconnect may be nil.
func New(cfg Config, log *logging.Logger, m *metrics.Metrics, onConnect, onDisconnect func(model.WebSocketConnection)) *Fabric {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 5000
	}
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = 1000
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 300 * time.Second
	}
	if cfg.MaxOverflowStreak <= 0 {
		cfg.MaxOverflowStreak = 5
	}
	if log == nil {
		log = logging.New("ws_fabric", "info", "text")
	}
	return &Fabric{
		cfg:          cfg,
		log:          log,
		m:            m,
		conns:        make(map[string]*connection),
		byUser:       make(map[string]map[string]struct{}),
		onConnect:    onConnect,
		onDisconnect: onDisconnect,
	}
}

// CreateConnection mints a new connection record in CONNECTING state, not
// yet pooled — the caller still needs to call AddConnection once the
// transport handshake finishes.
func (f *Fabric) CreateConnection(userID, sessionID string) model.WebSocketConnection {
	now := time.Now()
	return model.WebSocketConnection{
		ID:              "conn_" + uuid.NewString(),
		UserID:          userID,
		SessionID:       sessionID,
		State:           model.ConnConnecting,
		ConnectedAt:     now,
		LastHeartbeatAt: now,
	}
}

// AddConnection pools conn with its transport if the pool has room,
// moving it to CONNECTED and firing onConnect. Returns false (and leaves
// the connection unpooled) if the pool is at MaxConnections.
func (f *Fabric) AddConnection(state model.WebSocketConnection, transport Transport) bool {
	f.mu.Lock()
	if len(f.conns) >= f.cfg.MaxConnections {
		f.mu.Unlock()
		return false
	}
	state.State = model.ConnConnected
	c := newConnection(state, transport, f.cfg.OutboundQueueSize)
	f.conns[state.ID] = c
	if state.UserID != "" {
		if f.byUser[state.UserID] == nil {
			f.byUser[state.UserID] = make(map[string]struct{})
		}
		f.byUser[state.UserID][state.ID] = struct{}{}
	}
	f.mu.Unlock()

	go c.serve(f.onWriteFailure, f.onFrameSent)

	if f.m != nil {
		f.m.WSConnectionsActive.Set(float64(f.Len()))
	}
	if f.onConnect != nil {
		f.onConnect(c.snapshot())
	}
	return true
}

// RemoveConnection marks a connection DISCONNECTED, removes it from the
// pool, and fires onDisconnect. Returns false if id is not pooled.
func (f *Fabric) RemoveConnection(id string) bool {
	f.mu.Lock()
	c, ok := f.conns[id]
	if !ok {
		f.mu.Unlock()
		return false
	}
	delete(f.conns, id)
	snap := c.snapshot()
	if set := f.byUser[snap.UserID]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(f.byUser, snap.UserID)
		}
	}
	f.mu.Unlock()

	c.setState(model.ConnDisconnected)
	c.close()

	if f.m != nil {
		f.m.WSConnectionsActive.Set(float64(f.Len()))
	}
	if f.onDisconnect != nil {
		f.onDisconnect(c.snapshot())
	}
	return true
}

// AuthenticateConnection moves a pooled connection to AUTHENTICATED.
func (f *Fabric) AuthenticateConnection(id, userID string) bool {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	c.mu.Lock()
	c.state.State = model.ConnAuthenticated
	if userID != "" {
		c.state.UserID = userID
	}
	c.mu.Unlock()
	return true
}

// Subscribe adds channel to id's subscription set. Returns false if id is
// not pooled.
func (f *Fabric) Subscribe(id, channel string) bool {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	c.subscribe(channel)
	return true
}

// Unsubscribe removes channel from id's subscription set.
func (f *Fabric) Unsubscribe(id, channel string) bool {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	c.unsubscribe(channel)
	return true
}

// BroadcastMessage enqueues frame to every AUTHENTICATED connection,
// returning the number of connections it was handed to.
func (f *Fabric) BroadcastMessage(frame model.WSFrame) int {
	f.mu.RLock()
	targets := make([]*connection, 0, len(f.conns))
	for _, c := range f.conns {
		if c.getState() == model.ConnAuthenticated {
			targets = append(targets, c)
		}
	}
	f.mu.RUnlock()
	return f.deliverAll(targets, frame)
}

// SendToConnection enqueues frame to a single connection. Returns false
// if id is not pooled.
func (f *Fabric) SendToConnection(id string, frame model.WSFrame) bool {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	f.deliverAll([]*connection{c}, frame)
	return true
}

// SendToUser enqueues frame to every connection belonging to userID.
func (f *Fabric) SendToUser(userID string, frame model.WSFrame) int {
	f.mu.RLock()
	ids := f.byUser[userID]
	targets := make([]*connection, 0, len(ids))
	for id := range ids {
		if c, ok := f.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	f.mu.RUnlock()
	return f.deliverAll(targets, frame)
}

// SendToSubscriptions enqueues frame to every connection whose
// subscription set intersects channels (OR semantics).
func (f *Fabric) SendToSubscriptions(channels []string, frame model.WSFrame) int {
	f.mu.RLock()
	targets := make([]*connection, 0)
	for _, c := range f.conns {
		if c.subscribedToAny(channels) {
			targets = append(targets, c)
		}
	}
	f.mu.RUnlock()
	return f.deliverAll(targets, frame)
}

func (f *Fabric) deliverAll(targets []*connection, frame model.WSFrame) int {
	delivered := 0
	for _, c := range targets {
		dropped := c.enqueue(frame)
		if dropped {
			c.mu.Lock()
			c.overflowStreak++
			streak := c.overflowStreak
			id := c.state.ID
			c.mu.Unlock()
			if f.m != nil {
				f.m.WSMessagesDropped.Inc()
			}
			f.log.WithFields(map[string]interface{}{"connection_id": id}).Warn("outbound queue overflow, dropped oldest frame")
			if streak >= f.cfg.MaxOverflowStreak {
				f.log.WithFields(map[string]interface{}{"connection_id": id}).Warn("repeated overflow, forcing disconnect")
				f.RemoveConnection(id)
				continue
			}
		} else {
			c.mu.Lock()
			c.overflowStreak = 0
			c.mu.Unlock()
		}
		delivered++
	}
	return delivered
}

func (f *Fabric) onWriteFailure(id string) {
	f.log.WithFields(map[string]interface{}{"connection_id": id}).Warn("transport write failed, removing connection")
	f.RemoveConnection(id)
}

func (f *Fabric) onFrameSent(id string) {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return
	}
	c.markSent()
	if f.m != nil {
		f.m.WSMessagesSent.Inc()
	}
}

// Start launches the heartbeat emitter and liveness sweeper as dedicated
// cron-scheduled tasks.
func (f *Fabric) Start() error {
	f.cronRunner = cron.New()
	if _, err := f.cronRunner.AddFunc(f.cfg.HeartbeatCron, f.emitHeartbeat); err != nil {
		return fmt.Errorf("wsfabric: invalid heartbeat schedule %q: %w", f.cfg.HeartbeatCron, err)
	}
	if _, err := f.cronRunner.AddFunc(f.cfg.LivenessCron, f.sweepLiveness); err != nil {
		return fmt.Errorf("wsfabric: invalid liveness schedule %q: %w", f.cfg.LivenessCron, err)
	}
	f.cronRunner.Start()
	return nil
}

// Stop halts the heartbeat/liveness tasks and closes every pooled
// connection.
func (f *Fabric) Stop() {
	if f.cronRunner != nil {
		ctx := f.cronRunner.Stop()
		<-ctx.Done()
	}
	f.mu.Lock()
	ids := make([]string, 0, len(f.conns))
	for id := range f.conns {
		ids = append(ids, id)
	}
	f.mu.Unlock()
	for _, id := range ids {
		f.RemoveConnection(id)
	}
}

func (f *Fabric) emitHeartbeat() {
	f.heartbeatSeq++
	frame := model.WSFrame{
		MessageID: fmt.Sprintf("msg_hb_%d", f.heartbeatSeq),
		Type:      model.WSHeartbeat,
		SenderID:  "ws_fabric",
	}
	f.BroadcastMessage(frame)
}

// OnPong updates a connection's liveness after a pong/ack frame.
func (f *Fabric) OnPong(id string) {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return
	}
	c.touchHeartbeat(time.Now())
}

func (f *Fabric) sweepLiveness() {
	now := time.Now()
	f.mu.RLock()
	var dead []string
	for id, c := range f.conns {
		if !c.isAlive(now, f.cfg.ConnectionTimeout) {
			dead = append(dead, id)
		}
	}
	f.mu.RUnlock()
	for _, id := range dead {
		f.log.WithFields(map[string]interface{}{"connection_id": id}).Info("connection timed out, removing")
		f.RemoveConnection(id)
	}
}

// Len returns the current pool size.
func (f *Fabric) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.conns)
}

// Snapshot returns the public state of a pooled connection.
func (f *Fabric) Snapshot(id string) (model.WebSocketConnection, bool) {
	f.mu.RLock()
	c, ok := f.conns[id]
	f.mu.RUnlock()
	if !ok {
		return model.WebSocketConnection{}, false
	}
	return c.snapshot(), true
}

// Stats is the get_stats response.
type Stats struct {
	PooledConnections int      `json:"pooled_connections"`
	AuthenticatedUsers int      `json:"authenticated_users"`
	ConnectionIDs      []string `json:"connection_ids"`
}

// GetStats returns pool-level counters as of the call time.
func (f *Fabric) GetStats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.conns))
	for id := range f.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Stats{
		PooledConnections: len(f.conns),
		AuthenticatedUsers: len(f.byUser),
		ConnectionIDs:      ids,
	}
}
