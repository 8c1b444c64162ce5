package store

import (
	"context"
	"errors"

	"chat-backend/internal/models"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the persistence capability used by the chat backend: keyed CRUD
// for rooms and users plus a bounded, newest-first message log per room.
//
// ListMessages returns at most limit messages, newest first. A non-empty
// before cursor (a prior message's id) restricts the result to messages
// strictly older than that cursor. Unknown or empty rooms yield an empty
// slice, not an error.
type Store interface {
	CreateRoom(ctx context.Context, name string, metadata map[string]any) (models.Room, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)

	CreateUser(ctx context.Context, username string, metadata map[string]any) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	AppendMessage(ctx context.Context, msg models.Message) error
	ListMessages(ctx context.Context, roomID string, limit int, before string) ([]models.Message, error)

	Ping(ctx context.Context) error
}
