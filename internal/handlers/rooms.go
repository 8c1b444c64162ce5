package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/store"
	"chat-backend/internal/telemetry"
)

// RoomHandler manages room endpoints.
type RoomHandler struct {
	store store.Store
	audit *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(st store.Store, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{store: st, audit: audit}
}

// CreateRoom creates a room with a server-generated id. Names are not unique
// keys; creating the same name twice yields two rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req struct {
		Name     string         `json:"name" binding:"required"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "room created: "+room.ID, requestIDFromContext(c), "")
	c.JSON(http.StatusCreated, room)
}

// ListRooms returns all rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom returns one room by id.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.store.GetRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}
