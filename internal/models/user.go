package models

import "time"

// User is a registered chat participant. Usernames are not unique; identity
// is always the server-generated id.
type User struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
