package ws

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/registry"
	"chat-backend/internal/store"
)

const defaultHistoryLimit = 50

// sessionState is the connection's lifecycle. A session is created in
// stateConnecting, moves to stateActive once its transport is accepted by
// the hub, and ends in stateClosed when the read loop exits.
type sessionState int

const (
	stateConnecting sessionState = iota
	stateActive
	stateClosed
)

// Session is the per-connection message-handling state machine. It consumes
// inbound frames one at a time and is the only client-side caller of the
// store and the hub.
type Session struct {
	hub      *Hub
	registry *registry.Registry
	store    store.Store
	typing   *TypingTracker

	userID string
	conn   *websocket.Conn
	send   Conn

	state        sessionState
	historyLimit int
}

// NewSession builds a session for an upgraded connection. The send side must
// be the Conn registered with the hub for this user.
func NewSession(hub *Hub, reg *registry.Registry, st store.Store, typing *TypingTracker, userID string, conn *websocket.Conn, send Conn) *Session {
	return &Session{
		hub:          hub,
		registry:     reg,
		store:        st,
		typing:       typing,
		userID:       userID,
		conn:         conn,
		send:         send,
		state:        stateConnecting,
		historyLimit: defaultHistoryLimit,
	}
}

// Run registers the transport and consumes frames until the connection
// closes. It always retires the connection on the way out, which drops the
// user's memberships and notifies their rooms.
func (s *Session) Run(ctx context.Context, info ConnInfo) error {
	s.hub.Accept(s.userID, s.send, info)
	s.state = stateActive

	defer func() {
		s.state = stateClosed
		s.hub.RetireConn(s.userID, s.send)
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.handleFrame(ctx, raw)
	}
}

// handleFrame dispatches one inbound frame. Unknown and malformed frames are
// dropped without closing the connection.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	frame := models.DecodeFrame(raw)
	switch frame.Kind {
	case models.FrameJoin:
		s.handleJoin(ctx, frame.RoomID)
	case models.FrameLeave:
		s.handleLeave(frame.RoomID)
	case models.FrameTyping:
		if frame.RoomID != "" {
			s.typing.SetTyping(frame.RoomID, s.userID, frame.IsTyping)
		}
	case models.FrameMessage:
		s.handleMessage(ctx, frame)
	case models.FrameUnknown:
		// Tolerated for protocol evolution.
	}
}

func (s *Session) handleJoin(ctx context.Context, roomID string) {
	if roomID == "" {
		return
	}

	s.registry.Join(s.userID, roomID)

	history, err := s.store.ListMessages(ctx, roomID, s.historyLimit, "")
	if err != nil {
		log.Printf("history load failed for room %s: %v", roomID, err)
		s.reportError("failed to load history")
	} else if err := s.send.WriteJSON(models.NewHistoryEvent(roomID, history)); err != nil {
		log.Printf("history push failed for user %s: %v", s.userID, err)
	}

	s.hub.Broadcast(roomID, joinedMessage(roomID, s.userID), "")
}

func (s *Session) handleLeave(roomID string) {
	if roomID == "" {
		return
	}

	s.registry.Leave(s.userID, roomID)
	s.hub.Broadcast(roomID, leftMessage(roomID, s.userID), "")
}

func (s *Session) handleMessage(ctx context.Context, frame models.Frame) {
	if frame.RoomID == "" {
		return
	}
	if frame.Content == "" {
		s.reportError("content must not be empty")
		return
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		RoomID:    frame.RoomID,
		UserID:    s.userID,
		Content:   frame.Content,
		Type:      models.MessageText,
		CreatedAt: time.Now().UTC(),
		Metadata:  frame.Metadata,
		ReplyTo:   frame.ReplyTo,
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		log.Printf("message append failed for room %s: %v", frame.RoomID, err)
		s.reportError("failed to store message")
		return
	}
	observability.IncMessagePersisted()

	// The sender receives its own message back as the delivery receipt.
	s.hub.Broadcast(frame.RoomID, msg, "")
}

// reportError goes only to the offending client, never into a broadcast.
func (s *Session) reportError(msg string) {
	if err := s.send.WriteJSON(models.NewErrorEvent(msg)); err != nil {
		log.Printf("error report failed for user %s: %v", s.userID, err)
	}
}
