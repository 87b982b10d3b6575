package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gorilla/websocket"
)

// upgrader performs the WebSocket handshake itself (the one piece of
// transport plumbing this module cannot avoid owning, since gorilla's
// API requires a live *http.Request/http.ResponseWriter); everything
// past the handshake is delegated to internal/wsfabric, matching
// spec.md's Non-goal framing of "the transport-level WebSocket
// handshake" as the only part truly external.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsTransport adapts a *websocket.Conn to wsfabric.Transport.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) WriteFrame(frame model.WSFrame) error {
	return t.conn.WriteJSON(frame)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// handleWebSocket upgrades the connection, pools it with the fabric, and
// pumps inbound frames (SUBSCRIBE/UNSUBSCRIBE/HEARTBEAT-pong) until the
// client disconnects.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.fabric == nil {
		writeError(w, r, apierrors.Configuration("websocket fabric not wired"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	userID := r.URL.Query().Get("user_id")
	sessionID := r.URL.Query().Get("session_id")

	state := h.fabric.CreateConnection(userID, sessionID)
	transport := &wsTransport{conn: conn}
	if !h.fabric.AddConnection(state, transport) {
		_ = conn.WriteJSON(model.WSFrame{Type: model.WSError, Payload: map[string]interface{}{"reason": "connection pool full"}})
		_ = conn.Close()
		return
	}
	h.fabric.AuthenticateConnection(state.ID, userID)

	h.pumpInbound(conn, state.ID)
}

func (h *Handler) pumpInbound(conn *websocket.Conn, connID string) {
	defer h.fabric.RemoveConnection(connID)
	for {
		var frame model.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case model.WSHeartbeat:
			h.fabric.OnPong(connID)
		case model.WSSubscribe:
			for _, ch := range channelsFromPayload(frame.Payload) {
				h.fabric.Subscribe(connID, ch)
			}
		case model.WSUnsubscribe:
			for _, ch := range channelsFromPayload(frame.Payload) {
				h.fabric.Unsubscribe(connID, ch)
			}
		}
	}
}

func channelsFromPayload(payload map[string]interface{}) []string {
	raw, ok := payload["channels"]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var channels []string
	if err := json.Unmarshal(encoded, &channels); err != nil {
		return nil
	}
	return channels
}
