package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/models"
)

// MemoryStore implements Store entirely in memory with the same bounded-log
// and pagination semantics as RedisStore. It backs tests and local runs
// without a Redis instance; nothing here survives a restart.
type MemoryStore struct {
	mu          sync.Mutex
	rooms       map[string]models.Room
	users       map[string]models.User
	messages    map[string][]models.Message // newest first
	maxMessages int
}

// NewMemoryStore builds an empty MemoryStore bounded to maxMessages per room.
func NewMemoryStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessagesPerRoom
	}
	return &MemoryStore{
		rooms:       make(map[string]models.Room),
		users:       make(map[string]models.User),
		messages:    make(map[string][]models.Message),
		maxMessages: maxMessages,
	}
}

func (s *MemoryStore) CreateRoom(ctx context.Context, name string, metadata map[string]any) (models.Room, error) {
	now := time.Now().UTC()
	room := models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	s.mu.Lock()
	s.rooms[room.ID] = room
	s.mu.Unlock()
	return room, nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return models.Room{}, ErrRoomNotFound
	}
	return room, nil
}

func (s *MemoryStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, username string, metadata map[string]any) (models.User, error) {
	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
	return user, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append([]models.Message{msg}, s.messages[msg.RoomID]...)
	if len(log) > s.maxMessages {
		log = log[:s.maxMessages]
	}
	s.messages[msg.RoomID] = log
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, roomID string, limit int, before string) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	s.mu.Lock()
	log := append([]models.Message(nil), s.messages[roomID]...)
	s.mu.Unlock()

	if before != "" {
		return pageAfter(log, before, limit), nil
	}
	if len(log) > limit {
		log = log[:limit]
	}
	if log == nil {
		log = []models.Message{}
	}
	return log, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
