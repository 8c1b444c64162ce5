package models

import "time"

// HistoryEvent is pushed to a client right after it joins a room, before any
// further frames from that client are processed.
type HistoryEvent struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"room_id"`
	Messages []Message `json:"messages"`
}

// TypingEvent is broadcast to a room whenever a member's typing state
// changes, including expiry-driven transitions.
type TypingEvent struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is sent only to the client whose frame failed; it is never
// broadcast.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewHistoryEvent(roomID string, messages []Message) HistoryEvent {
	if messages == nil {
		messages = []Message{}
	}
	return HistoryEvent{Type: "history", RoomID: roomID, Messages: messages}
}

func NewTypingEvent(roomID, userID string, isTyping bool) TypingEvent {
	return TypingEvent{
		Type:      "typing",
		RoomID:    roomID,
		UserID:    userID,
		IsTyping:  isTyping,
		Timestamp: time.Now().UTC(),
	}
}

func NewErrorEvent(msg string) ErrorEvent {
	return ErrorEvent{Type: "error", Error: msg}
}
