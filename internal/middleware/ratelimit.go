package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/breast-dx-server/internal/domain"
)

// ClientRateLimiter keeps one token bucket per client IP. Idle clients age out of a
// bounded LRU.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewClientRateLimiter creates a per-client limiter tracking at most maxClients.
func NewClientRateLimiter(rps float64, burst, maxClients int, idle time.Duration) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxClients, nil, idle),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// Limiter returns the bucket for a client, creating it on first use.
func (l *ClientRateLimiter) Limiter(client string) *rate.Limiter {
	if limiter, ok := l.limiters.Get(client); ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters.Get(client); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters.Add(client, limiter)
	return limiter
}

// Middleware rejects requests over the client's budget with 429.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
				domain.ErrRateLimit,
				"Too many requests",
				"",
				c.GetString(CorrelationIDKey),
			))
			return
		}
		c.Next()
	}
}
