package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/store"
)

// Healthz reports liveness including store reachability.
func Healthz(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
