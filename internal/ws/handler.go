package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-backend/internal/observability"
	"chat-backend/internal/registry"
	"chat-backend/internal/store"
)

// ChatWebSocketHandler upgrades chat websocket connections and runs one
// session per connection.
type ChatWebSocketHandler struct {
	hub      *Hub
	registry *registry.Registry
	store    store.Store
	typing   *TypingTracker
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, reg *registry.Registry, st store.Store, typing *TypingTracker) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, registry: reg, store: st, typing: typing}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle validates the user, upgrades the connection and hands it to a
// session goroutine. The accept path never waits on another connection.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx, span := otel.Tracer("chat-backend/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	rawConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycleEvent(ctx, "ws_connect", info, 0, "")

	send := NewConn(rawConn)
	session := NewSession(h.hub, h.registry, h.store, h.typing, userID, rawConn, send)

	go func() {
		// The read loop owns the connection from here; sessions for other
		// users are unaffected by anything this one does.
		err := session.Run(context.Background(), info)

		var closeReason string
		if err != nil {
			closeReason = err.Error()
			observability.IncWSEvent("ws_error")
			h.publishLifecycleEvent(context.Background(), "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
		}

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycleEvent(context.Background(), "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
	}()
}

func (h *ChatWebSocketHandler) publishLifecycleEvent(ctx context.Context, event string, info ConnInfo, durationMS int64, reason string) {
	_ = observability.PublishEvent(ctx, wsEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]any{
			"ws": map[string]any{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]any{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
