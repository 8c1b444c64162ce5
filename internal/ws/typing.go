package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
)

// DefaultTypingTimeout clears a typing indicator after this much silence.
const DefaultTypingTimeout = 5 * time.Second

// TypingTracker keeps the short-lived (room, user) -> last-typing state. An
// entry exists only while the user counts as currently typing; the sweep
// synthesizes stop transitions for users whose client went quiet without
// sending an explicit stop.
type TypingTracker struct {
	hub     *Hub
	timeout time.Duration

	mu     sync.Mutex
	typing map[string]map[string]time.Time // roomID -> userID -> last typing
}

// NewTypingTracker creates a tracker broadcasting through hub.
func NewTypingTracker(hub *Hub, timeout time.Duration) *TypingTracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingTracker{
		hub:     hub,
		timeout: timeout,
		typing:  make(map[string]map[string]time.Time),
	}
}

// SetTyping records or clears the user's typing state and broadcasts the
// transition to the room.
func (t *TypingTracker) SetTyping(roomID, userID string, isTyping bool) {
	t.mu.Lock()
	if isTyping {
		if _, ok := t.typing[roomID]; !ok {
			t.typing[roomID] = make(map[string]time.Time)
		}
		t.typing[roomID][userID] = time.Now()
	} else if users, ok := t.typing[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.typing, roomID)
		}
	}
	t.mu.Unlock()

	t.hub.Broadcast(roomID, models.NewTypingEvent(roomID, userID, isTyping), "")
}

// SweepExpired clears every typing entry older than the timeout as of now,
// broadcasting one stop transition per expired entry.
func (t *TypingTracker) SweepExpired(now time.Time) {
	type entry struct {
		roomID string
		userID string
	}
	var expired []entry

	// Remove under the lock so an indicator refreshed mid-sweep is not
	// cleared by a stale expiry decision.
	t.mu.Lock()
	for roomID, users := range t.typing {
		for userID, last := range users {
			if now.Sub(last) > t.timeout {
				expired = append(expired, entry{roomID: roomID, userID: userID})
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(t.typing, roomID)
		}
	}
	t.mu.Unlock()

	for _, e := range expired {
		observability.IncTypingExpired()
		t.hub.Broadcast(e.roomID, models.NewTypingEvent(e.roomID, e.userID, false), "")
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. It is started once
// at process startup, independent of any connection's lifecycle.
func (t *TypingTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("typing sweep running interval=%s timeout=%s", interval, t.timeout)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.SweepExpired(now)
		}
	}
}
