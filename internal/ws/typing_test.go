package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/models"
)

func typingEvents(conn *fakeConn) []models.TypingEvent {
	var out []models.TypingEvent
	for _, ev := range conn.recorded() {
		if te, ok := ev.(models.TypingEvent); ok {
			out = append(out, te)
		}
	}
	return out
}

func TestSetTypingBroadcastsTransitions(t *testing.T) {
	hub, reg := newTestHub()
	tracker := NewTypingTracker(hub, time.Second)
	connect(hub, reg, "alice", "general")
	bob := connect(hub, reg, "bob", "general")

	tracker.SetTyping("general", "alice", true)
	tracker.SetTyping("general", "alice", false)

	events := typingEvents(bob)
	require.Len(t, events, 2)
	assert.True(t, events[0].IsTyping)
	assert.Equal(t, "alice", events[0].UserID)
	assert.False(t, events[1].IsTyping)
}

func TestSweepExpiresSilentTyper(t *testing.T) {
	hub, reg := newTestHub()
	tracker := NewTypingTracker(hub, 5*time.Second)
	connect(hub, reg, "alice", "general")
	bob := connect(hub, reg, "bob", "general")

	tracker.SetTyping("general", "alice", true)

	// Sweeps inside the timeout window do nothing.
	tracker.SweepExpired(time.Now())
	tracker.SweepExpired(time.Now().Add(4 * time.Second))
	require.Len(t, typingEvents(bob), 1)

	// One expiry past the window, and only one, even if swept again.
	expiry := time.Now().Add(6 * time.Second)
	tracker.SweepExpired(expiry)
	tracker.SweepExpired(expiry.Add(time.Second))

	events := typingEvents(bob)
	require.Len(t, events, 2)
	assert.False(t, events[1].IsTyping)
	assert.Equal(t, "alice", events[1].UserID)
	assert.Equal(t, "general", events[1].RoomID)
}

func TestStopTypingWithoutStartStillBroadcasts(t *testing.T) {
	hub, reg := newTestHub()
	tracker := NewTypingTracker(hub, time.Second)
	bob := connect(hub, reg, "bob", "general")

	tracker.SetTyping("general", "alice", false)

	events := typingEvents(bob)
	require.Len(t, events, 1)
	assert.False(t, events[0].IsTyping)
}

func TestSweepTracksRoomsIndependently(t *testing.T) {
	hub, reg := newTestHub()
	tracker := NewTypingTracker(hub, 5*time.Second)
	watcherA := connect(hub, reg, "wa", "a")
	watcherB := connect(hub, reg, "wb", "b")

	tracker.SetTyping("a", "alice", true)
	time.Sleep(10 * time.Millisecond)
	tracker.SetTyping("b", "alice", true)

	tracker.SweepExpired(time.Now().Add(6 * time.Second))

	require.Len(t, typingEvents(watcherA), 2)
	require.Len(t, typingEvents(watcherB), 2)
}
