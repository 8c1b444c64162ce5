package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/store"
	"chat-backend/internal/ws"
)

const defaultListLimit = 50

// MessageHandler manages the request-style message endpoints. Messages
// posted here reach connected room members through the same broadcast path
// as websocket sends.
type MessageHandler struct {
	store store.Store
	hub   *ws.Hub
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(st store.Store, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{store: st, hub: hub}
}

// PostMessage stores a message in a room's log and broadcasts it.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	roomID := c.Param("room_id")

	var req struct {
		UserID   string         `json:"user_id" binding:"required"`
		Content  string         `json:"content" binding:"required"`
		Type     string         `json:"type"`
		Metadata map[string]any `json:"metadata"`
		ReplyTo  string         `json:"reply_to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msgType := models.MessageType(req.Type)
	if req.Type == "" {
		msgType = models.MessageText
	}
	if !msgType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message type"})
		return
	}

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	if _, err := h.store.GetUser(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    req.UserID,
		Content:   req.Content,
		Type:      msgType,
		CreatedAt: time.Now().UTC(),
		Metadata:  req.Metadata,
		ReplyTo:   req.ReplyTo,
	}

	if err := h.store.AppendMessage(c.Request.Context(), msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessagePersisted()

	h.hub.Broadcast(roomID, msg, "")
	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns a room's recent messages, newest first, with optional
// cursor pagination via the before query parameter.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), roomID, limit, c.Query("before"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
