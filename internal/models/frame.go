package models

import "encoding/json"

// FrameKind is the closed set of inbound frame classifications. Frames whose
// type tag is unrecognized, or whose body does not parse at all, classify as
// FrameUnknown and are ignored by the session loop so that newer clients can
// speak newer dialects without breaking the connection.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameJoin
	FrameLeave
	FrameTyping
	FrameMessage
)

// Frame is one decoded inbound websocket frame.
type Frame struct {
	Kind     FrameKind
	RoomID   string
	IsTyping bool
	Content  string
	Metadata map[string]any
	ReplyTo  string
}

type wireFrame struct {
	Type     string         `json:"type"`
	RoomID   string         `json:"room_id"`
	IsTyping bool           `json:"is_typing"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	ReplyTo  string         `json:"reply_to"`
}

// DecodeFrame classifies a raw inbound frame. A missing type tag means a
// regular message; malformed JSON yields FrameUnknown rather than an error.
func DecodeFrame(raw []byte) Frame {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{Kind: FrameUnknown}
	}

	switch w.Type {
	case "join":
		return Frame{Kind: FrameJoin, RoomID: w.RoomID}
	case "leave":
		return Frame{Kind: FrameLeave, RoomID: w.RoomID}
	case "typing":
		return Frame{Kind: FrameTyping, RoomID: w.RoomID, IsTyping: w.IsTyping}
	case "message", "":
		return Frame{
			Kind:     FrameMessage,
			RoomID:   w.RoomID,
			Content:  w.Content,
			Metadata: w.Metadata,
			ReplyTo:  w.ReplyTo,
		}
	default:
		return Frame{Kind: FrameUnknown}
	}
}
