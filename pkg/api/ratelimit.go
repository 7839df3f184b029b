package api

import (
	"net"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client-IP request rate using
// golang.org/x/time/rate, one token bucket per IP created on first
// sight.
type RateLimiter struct {
	mu       sync.Mutex
	rps      int
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a RateLimiter allowing rps requests per second
// per IP, with burst as the token bucket's capacity.
func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// getLimiter returns the token bucket for ip, creating one on first
// use.
func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
		rl.limiters[ip] = limiter
	}
	return limiter
}

// Middleware returns gin middleware that rejects requests exceeding
// the caller's rate with HTTP 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)
		if !rl.getLimiter(ip).Allow() {
			c.JSON(429, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CleanupOldLimiters is reserved for a future eviction policy once
// per-IP limiters are observed to grow unbounded in long-lived
// deployments; currently a no-op.
func (rl *RateLimiter) CleanupOldLimiters() {}

func clientIP(c *gin.Context) string {
	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}
	return c.ClientIP()
}
