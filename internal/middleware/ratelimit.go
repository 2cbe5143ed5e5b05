package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = 5 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP with a token bucket per client.
// Idle clients are forgotten lazily as new requests arrive.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rate      rate.Limit
	burst     int
	lastSweep time.Time
}

// NewRateLimiter creates a limiter allowing r requests per second with the given burst
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		rate:      r,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// PerMinute creates a limiter allowing n requests per minute, bursting up to n
func PerMinute(n int) *RateLimiter {
	return NewRateLimiter(rate.Limit(float64(n)/60.0), n)
}

func (rl *RateLimiter) limiterFor(client string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > limiterSweepInterval {
		for key, c := range rl.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	if c, ok := rl.clients[client]; ok {
		c.lastSeen = now
		return c.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.clients[client] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			retryAfter := 1
			if rl.rate > 0 {
				retryAfter = int(math.Max(1, math.Ceil(1.0/float64(rl.rate))))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many translation requests, please retry later",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
