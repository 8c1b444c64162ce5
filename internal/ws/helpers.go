package ws

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chat-backend/internal/models"
)

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// systemUserID authors the join/leave notifications.
const systemUserID = "system"

func systemMessage(roomID, content string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    systemUserID,
		Content:   content,
		Type:      models.MessageSystem,
		CreatedAt: time.Now().UTC(),
	}
}

func joinedMessage(roomID, userID string) models.Message {
	return systemMessage(roomID, fmt.Sprintf("User %s joined the chat", userID))
}

func leftMessage(roomID, userID string) models.Message {
	return systemMessage(roomID, fmt.Sprintf("User %s left the chat", userID))
}
