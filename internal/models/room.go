package models

import "time"

// Room is a named, persisted channel grouping users and messages. Live
// membership is not part of the persisted record; it is tracked in memory by
// the registry and rebuilt from scratch on restart.
type Room struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
