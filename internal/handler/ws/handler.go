package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
	"github.com/redmoonthebest/morozhenka/backend/internal/service/collect"
	sessionsvc "github.com/redmoonthebest/morozhenka/backend/internal/service/session"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler serves the session protocol over a WebSocket connection.
type Handler struct {
	engine   *collect.Engine
	upgrader websocket.Upgrader
}

// New creates a WebSocket handler backed by the collection engine.
func New(engine *collect.Engine) *Handler {
	return &Handler{
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type identityPayload struct {
	DisplayName string `json:"displayName"`
	Locale      string `json:"locale"`
}

// connState tracks the session a connection is bound to. Binding happens on
// the first frame that names a session, or on start.
type connState struct {
	sessionID string
}

// HandleConnection upgrades the request and serves frames until the client
// disconnects or the read deadline lapses.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connState{}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[ws] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(readTimeout))

			for _, frame := range h.process(ctx, state, &msg) {
				if err := conn.WriteJSON(frame); err != nil {
					log.Printf("[ws] write failed: %v", err)
					return
				}
			}
		}
	}
}

// process turns one inbound frame into the outgoing frames it produces.
func (h *Handler) process(ctx context.Context, state *connState, msg *inboundMessage) []outgoingMessage {
	switch msg.Type {
	case "start":
		return h.processStart(ctx, state, msg)
	case "message":
		return h.processMessage(ctx, state, msg)
	case "restart":
		return h.processRestart(ctx, state, msg)
	case "cancel":
		return h.processCancel(ctx, state, msg)
	default:
		return []outgoingMessage{errorFrame(state.sessionID, "unsupported message type: "+msg.Type)}
	}
}

func (h *Handler) processStart(ctx context.Context, state *connState, msg *inboundMessage) []outgoingMessage {
	var payload identityPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return []outgoingMessage{errorFrame(state.sessionID, "invalid start payload")}
		}
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = state.sessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if state.sessionID != "" && sessionID != state.sessionID {
		return []outgoingMessage{errorFrame(state.sessionID, "session mismatch")}
	}

	reply, err := h.engine.Start(ctx, sessionID, conversation.Identity{
		DisplayName: payload.DisplayName,
		Locale:      payload.Locale,
	})
	if err != nil {
		return []outgoingMessage{errorFrame(sessionID, collect.GenericFailureMessage)}
	}

	state.sessionID = sessionID
	return []outgoingMessage{replyFrame(sessionID, map[string]interface{}{"text": reply})}
}

func (h *Handler) processMessage(ctx context.Context, state *connState, msg *inboundMessage) []outgoingMessage {
	sessionID, frames := h.boundSession(state, msg)
	if frames != nil {
		return frames
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Text == "" {
		return []outgoingMessage{errorFrame(sessionID, "text is required")}
	}

	reply, err := h.engine.HandleMessage(ctx, sessionID, payload.Text)
	if err != nil {
		if errors.Is(err, sessionsvc.ErrSessionNotFound) {
			return []outgoingMessage{errorFrame(sessionID, "session not found")}
		}
		log.Printf("[ws] session=%s message failed: %v", sessionID, err)
		return []outgoingMessage{errorFrame(sessionID, collect.GenericFailureMessage)}
	}

	complete := false
	if snap, err := h.engine.Snapshot(ctx, sessionID); err == nil {
		complete = snap.State == conversation.StateComplete
	}

	return []outgoingMessage{replyFrame(sessionID, map[string]interface{}{
		"text":     reply,
		"complete": complete,
	})}
}

func (h *Handler) processRestart(ctx context.Context, state *connState, msg *inboundMessage) []outgoingMessage {
	sessionID, frames := h.boundSession(state, msg)
	if frames != nil {
		return frames
	}

	var payload identityPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return []outgoingMessage{errorFrame(sessionID, "invalid restart payload")}
		}
	}

	replies, err := h.engine.Restart(ctx, sessionID, conversation.Identity{
		DisplayName: payload.DisplayName,
		Locale:      payload.Locale,
	})
	if err != nil {
		return []outgoingMessage{errorFrame(sessionID, collect.GenericFailureMessage)}
	}

	out := make([]outgoingMessage, 0, len(replies))
	for _, text := range replies {
		out = append(out, replyFrame(sessionID, map[string]interface{}{"text": text}))
	}
	return out
}

func (h *Handler) processCancel(ctx context.Context, state *connState, msg *inboundMessage) []outgoingMessage {
	sessionID, frames := h.boundSession(state, msg)
	if frames != nil {
		return frames
	}

	reply := h.engine.Cancel(ctx, sessionID)
	return []outgoingMessage{replyFrame(sessionID, map[string]interface{}{"text": reply})}
}

// boundSession resolves the frame's session, binding the connection on first
// use. A non-nil frames slice is the error response to send instead.
func (h *Handler) boundSession(state *connState, msg *inboundMessage) (string, []outgoingMessage) {
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = state.sessionID
	}
	if sessionID == "" {
		return "", []outgoingMessage{errorFrame("", "sessionId is required")}
	}
	if state.sessionID != "" && sessionID != state.sessionID {
		return "", []outgoingMessage{errorFrame(state.sessionID, "session mismatch")}
	}

	state.sessionID = sessionID
	return sessionID, nil
}

func replyFrame(sessionID string, data interface{}) outgoingMessage {
	return outgoingMessage{
		Type:      "reply",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

func errorFrame(sessionID, message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		SessionID: sessionID,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
