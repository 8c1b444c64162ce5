package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitedRouter(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(limit))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func TestRateLimitRejectsExcessRequests(t *testing.T) {
	router := setupRateLimitedRouter(3)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	router := setupRateLimitedRouter(1)

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1000"
	second := httptest.NewRequest(http.MethodGet, "/ping", nil)
	second.RemoteAddr = "10.0.0.2:1000"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitZeroDisables(t *testing.T) {
	router := setupRateLimitedRouter(0)

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Now()

	require.True(t, rl.allow("ip", now))
	require.True(t, rl.allow("ip", now.Add(time.Second)))
	require.False(t, rl.allow("ip", now.Add(2*time.Second)))

	// A fresh window starts once the old one ages out.
	require.True(t, rl.allow("ip", now.Add(time.Minute)))
}

func TestRateLimitPrunesExpiredClients(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	now := time.Now()

	rl.allow("stale", now)
	rl.allow("fresh", now.Add(30*time.Second))
	rl.prune(now.Add(time.Minute))

	rl.mu.Lock()
	_, staleKept := rl.counts["stale"]
	_, freshKept := rl.counts["fresh"]
	rl.mu.Unlock()

	assert.False(t, staleKept)
	assert.True(t, freshKept)
}
