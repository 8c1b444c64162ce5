package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chat-backend/internal/models"
)

const (
	defaultMaxMessagesPerRoom = 100
	defaultRetentionDays      = 30
)

// RedisStore is the production Store. Rooms and users live in hashes indexed
// by the "rooms"/"users" sets; each room's log is a list of JSON-encoded
// messages at room:{id}:messages, newest at the head, trimmed to maxMessages
// and expired after the retention window counted from the latest append.
type RedisStore struct {
	client      *redis.Client
	maxMessages int64
	retention   time.Duration
}

// Connect builds a RedisStore from the environment and verifies the
// connection with a ping.
func Connect() (*RedisStore, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	maxMessages := envInt("MAX_MESSAGES_PER_ROOM", defaultMaxMessagesPerRoom)
	retentionDays := envInt("MESSAGE_RETENTION_DAYS", defaultRetentionDays)

	log.Printf("redis connected addr=%s max_messages=%d retention_days=%d", client.Options().Addr, maxMessages, retentionDays)
	return NewRedisStore(client, maxMessages, time.Duration(retentionDays)*24*time.Hour), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, maxMessages int, retention time.Duration) *RedisStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessagesPerRoom
	}
	return &RedisStore{client: client, maxMessages: int64(maxMessages), retention: retention}
}

func roomKey(roomID string) string     { return "room:" + roomID }
func userKey(userID string) string     { return "user:" + userID }
func messagesKey(roomID string) string { return "room:" + roomID + ":messages" }

// CreateRoom stores a new room under a server-generated id. Duplicate names
// are allowed; every call creates a fresh room.
func (s *RedisStore) CreateRoom(ctx context.Context, name string, metadata map[string]any) (models.Room, error) {
	now := time.Now().UTC()
	room := models.Room{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	meta, err := marshalMetadata(metadata)
	if err != nil {
		return models.Room{}, fmt.Errorf("marshal room metadata: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, roomKey(room.ID), map[string]any{
			"id":         room.ID,
			"name":       room.Name,
			"created_at": room.CreatedAt.Format(time.RFC3339Nano),
			"updated_at": room.UpdatedAt.Format(time.RFC3339Nano),
			"metadata":   meta,
		})
		pipe.SAdd(ctx, "rooms", room.ID)
		return nil
	})
	if err != nil {
		return models.Room{}, fmt.Errorf("store room: %w", err)
	}
	return room, nil
}

// GetRoom loads a room by id.
func (s *RedisStore) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	data, err := s.client.HGetAll(ctx, roomKey(roomID)).Result()
	if err != nil {
		return models.Room{}, fmt.Errorf("load room: %w", err)
	}
	if len(data) == 0 {
		return models.Room{}, ErrRoomNotFound
	}

	room := models.Room{
		ID:        data["id"],
		Name:      data["name"],
		CreatedAt: parseTime(data["created_at"]),
		UpdatedAt: parseTime(data["updated_at"]),
		Metadata:  unmarshalMetadata(data["metadata"]),
	}
	return room, nil
}

// ListRooms returns every room referenced by the rooms set. Hashes that have
// gone missing are skipped rather than failing the whole listing.
func (s *RedisStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	ids, err := s.client.SMembers(ctx, "rooms").Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]models.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.GetRoom(ctx, id)
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// CreateUser stores a new user under a server-generated id.
func (s *RedisStore) CreateUser(ctx context.Context, username string, metadata map[string]any) (models.User, error) {
	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	meta, err := marshalMetadata(metadata)
	if err != nil {
		return models.User{}, fmt.Errorf("marshal user metadata: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, userKey(user.ID), map[string]any{
			"id":         user.ID,
			"username":   user.Username,
			"created_at": user.CreatedAt.Format(time.RFC3339Nano),
			"updated_at": user.UpdatedAt.Format(time.RFC3339Nano),
			"metadata":   meta,
		})
		pipe.SAdd(ctx, "users", user.ID)
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("store user: %w", err)
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *RedisStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	data, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	if len(data) == 0 {
		return models.User{}, ErrUserNotFound
	}

	user := models.User{
		ID:        data["id"],
		Username:  data["username"],
		CreatedAt: parseTime(data["created_at"]),
		UpdatedAt: parseTime(data["updated_at"]),
		Metadata:  unmarshalMetadata(data["metadata"]),
	}
	return user, nil
}

// ListUsers returns every user referenced by the users set.
func (s *RedisStore) ListUsers(ctx context.Context) ([]models.User, error) {
	ids, err := s.client.SMembers(ctx, "users").Result()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.GetUser(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// AppendMessage pushes a message onto the head of the room's log. Push, trim
// and expiry run inside a MULTI/EXEC pipeline so the bound holds even under
// concurrent appends, and the retention clock restarts on every append.
func (s *RedisStore) AppendMessage(ctx context.Context, msg models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := messagesKey(msg.RoomID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, s.maxMessages-1)
		pipe.Expire(ctx, key, s.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages reads the room's log newest first. With a before cursor it
// scans the full (bounded) list for the cursor's position and returns the
// strictly older continuation; an unknown cursor yields an empty page.
func (s *RedisStore) ListMessages(ctx context.Context, roomID string, limit int, before string) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	key := messagesKey(roomID)
	stop := int64(limit) - 1
	if before != "" {
		stop = -1
	}

	raw, err := s.client.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			log.Printf("skipping undecodable message in %s: %v", key, err)
			continue
		}
		msgs = append(msgs, msg)
	}

	if before == "" {
		return msgs, nil
	}
	return pageAfter(msgs, before, limit), nil
}

// Ping reports store health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// pageAfter returns up to limit messages strictly after the cursor's position
// in a newest-first log slice.
func pageAfter(msgs []models.Message, before string, limit int) []models.Message {
	for i, msg := range msgs {
		if msg.ID == before {
			rest := msgs[i+1:]
			if len(rest) > limit {
				rest = rest[:limit]
			}
			return rest
		}
	}
	return []models.Message{}
}

func marshalMetadata(metadata map[string]any) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalMetadata(raw string) map[string]any {
	if raw == "" || raw == "{}" {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil
	}
	return metadata
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, val, fallback)
		return fallback
	}
	return parsed
}
