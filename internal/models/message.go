package models

import "time"

// MessageType classifies a message on the wire and in storage.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
	MessageTyping MessageType = "typing"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageSystem, MessageTyping:
		return true
	}
	return false
}

// Message is an immutable chat message. The id and created_at fields are
// assigned by the server at creation and never change afterwards. ReplyTo may
// reference a message that has already been trimmed away; it is not validated.
type Message struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"room_id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Type      MessageType    `json:"type"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ReplyTo   string         `json:"reply_to,omitempty"`
}
