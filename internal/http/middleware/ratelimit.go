// README: Per-user token-bucket rate limiting.
package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// UserIDHeader identifies the caller when the route carries no user id.
const UserIDHeader = "X-User-ID"

// RateLimiter hands out one token bucket per caller key.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets sync.Map // key -> *rate.Limiter
}

// NewRateLimiter allows rps requests per second per caller with the given burst.
// rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limit: limit, burst: burst}
}

func (l *RateLimiter) Allow(key string) bool {
	v, ok := l.buckets.Load(key)
	if !ok {
		v, _ = l.buckets.LoadOrStore(key, rate.NewLimiter(l.limit, l.burst))
	}
	return v.(*rate.Limiter).Allow()
}

// Middleware keys buckets on the :user_id path parameter, then the user_id query
// parameter, then X-User-ID, then the client address.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	for _, v := range []string{c.Param("user_id"), c.Query("user_id"), c.GetHeader(UserIDHeader)} {
		if v != "" {
			return "user:" + v
		}
	}
	return "ip:" + c.ClientIP()
}
