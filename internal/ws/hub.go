package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-backend/internal/observability"
	"chat-backend/internal/registry"
)

const wsEventsRoutingKey = "ws_events.rooms"

// Hub owns the live transports, one per user, and fans broadcasts out to a
// room's current membership. Broadcasts for the same room are serialized so
// every recipient observes them in the same order; different rooms fan out
// independently.
type Hub struct {
	registry *registry.Registry

	mu     sync.Mutex
	conns  map[string]Conn
	infos  map[string]ConnInfo
	roomMu map[string]*sync.Mutex
}

// NewHub creates a hub over the given membership registry.
func NewHub(reg *registry.Registry) *Hub {
	return &Hub{
		registry: reg,
		conns:    make(map[string]Conn),
		infos:    make(map[string]ConnInfo),
		roomMu:   make(map[string]*sync.Mutex),
	}
}

// Accept registers a live transport for the user. A prior connection for the
// same user is closed and its memberships dropped; the new connection starts
// with no rooms and must join explicitly.
func (h *Hub) Accept(userID string, conn Conn, info ConnInfo) {
	// Read-and-replace happens under one lock hold so concurrent Accepts for
	// the same user always chain: every superseded transport is observed by
	// exactly one successor, which closes it.
	h.mu.Lock()
	prev, hadPrev := h.conns[userID]
	h.conns[userID] = conn
	h.infos[userID] = info
	h.mu.Unlock()

	if hadPrev {
		log.Printf("replacing existing connection for user %s", userID)
		_ = prev.Close()
		h.registry.DropUser(userID)
	}
}

// Retire closes and removes the user's transport, drops their memberships
// and notifies the remaining members of every room they were in. Safe to
// call for a user with no connection.
func (h *Hub) Retire(userID string) {
	h.retire(userID, nil)
}

// RetireConn retires the user only if conn is still their registered
// transport. Read loops use this so a stale loop cannot tear down a
// replacement connection.
func (h *Hub) RetireConn(userID string, conn Conn) {
	h.retire(userID, conn)
}

func (h *Hub) retire(userID string, only Conn) {
	h.mu.Lock()
	current, ok := h.conns[userID]
	if !ok || (only != nil && current != only) {
		h.mu.Unlock()
		return
	}
	delete(h.conns, userID)
	delete(h.infos, userID)
	h.mu.Unlock()

	_ = current.Close()

	rooms := h.registry.DropUser(userID)
	for _, roomID := range rooms {
		h.Broadcast(roomID, leftMessage(roomID, userID), userID)
	}
}

// Broadcast sends payload to every member of the room with a live transport,
// skipping excludeUser. A recipient whose write fails is treated as already
// disconnected and retired; delivery to the rest continues.
func (h *Hub) Broadcast(roomID string, payload any, excludeUser string) {
	lock := h.roomLock(roomID)
	lock.Lock()

	members := h.registry.Members(roomID)
	observability.ObserveBroadcastRecipients(len(members))

	type failure struct {
		userID string
		conn   Conn
	}
	var failed []failure

	for _, userID := range members {
		if userID == excludeUser {
			continue
		}

		h.mu.Lock()
		conn, ok := h.conns[userID]
		h.mu.Unlock()
		if !ok {
			continue
		}

		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("websocket write error for user %s: %v", userID, err)
			h.publishWSError(roomID, userID, err)
			failed = append(failed, failure{userID: userID, conn: conn})
		}
	}

	// Retiring re-enters Broadcast for the leave notifications, so the room
	// lock must be released first.
	lock.Unlock()
	for _, f := range failed {
		h.RetireConn(f.userID, f.conn)
	}
}

// Lookup returns the user's live transport, if any.
func (h *Hub) Lookup(userID string) (Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[userID]
	return conn, ok
}

func (h *Hub) roomLock(roomID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.roomMu[roomID]
	if !ok {
		lock = &sync.Mutex{}
		h.roomMu[roomID] = lock
	}
	return lock
}

func (h *Hub) publishWSError(roomID, userID string, err error) {
	h.mu.Lock()
	info, ok := h.infos[userID]
	h.mu.Unlock()
	if !ok {
		return
	}

	observability.IncWSEvent("ws_error")
	_ = observability.PublishEvent(context.Background(), wsEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload: map[string]any{
			"ws": map[string]any{
				"room_id":     roomID,
				"event":       "ws_error",
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      err.Error(),
			},
			"identity": map[string]any{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
