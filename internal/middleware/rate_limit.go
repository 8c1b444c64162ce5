package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxTrackedClients bounds the per-IP window map; expired entries are pruned
// once it fills up.
const maxTrackedClients = 10000

// RateLimit caps requests per client IP within a fixed one-minute window and
// answers 429 past the cap. A limit of zero or less disables it.
func RateLimit(limit int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	rl := newRateLimiter(limit, time.Minute)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.allow(ip, time.Now()) {
			log.Printf("rate limit exceeded for ip %s", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

type windowCount struct {
	start time.Time
	n     int
}

type rateLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	counts map[string]*windowCount
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
	}
}

func (r *rateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wc, ok := r.counts[key]
	if !ok || now.Sub(wc.start) >= r.window {
		if len(r.counts) >= maxTrackedClients {
			r.prune(now)
		}
		r.counts[key] = &windowCount{start: now, n: 1}
		return true
	}

	if wc.n >= r.limit {
		return false
	}
	wc.n++
	return true
}

func (r *rateLimiter) prune(now time.Time) {
	for key, wc := range r.counts {
		if now.Sub(wc.start) >= r.window {
			delete(r.counts, key)
		}
	}
}
