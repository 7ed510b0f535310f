package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// limiterTTL is how long an idle client keeps its limiter before eviction.
	limiterTTL = time.Hour
	// limiterSweepInterval is how often stale limiters are evicted.
	limiterSweepInterval = 5 * time.Minute
)

// limiterEntry tracks a per-client limiter and when it was last used.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns a middleware that throttles requests per client IP
// using a token bucket. requestsPerSecond is the sustained rate, burst
// the maximum burst size.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*limiterEntry)
	)

	// Evict limiters for clients that went quiet so the map stays bounded.
	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()

		for range ticker.C {
			mu.Lock()
			for ip, entry := range clients {
				if time.Since(entry.lastSeen) > limiterTTL {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		entry, ok := clients[ip]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
			clients[ip] = entry
		}

		entry.lastSeen = time.Now()

		return entry.limiter
	}

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, please slow down",
			})

			return
		}

		c.Next()
	}
}
