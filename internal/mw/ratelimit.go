package mw

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedLimiter hands out one token bucket per caller key.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewKeyedLimiter creates a KeyedLimiter allowing limit events per second with the
// given burst for each key.
func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (k *KeyedLimiter) Limiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	return l
}

// Allow reports whether key may make another request now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.Limiter(key).Allow()
}

// RateLimiter is a middleware for rate limiting. Authenticated callers are limited
// per user, everyone else per IP.
func RateLimiter(limit rate.Limit, burst int) gin.HandlerFunc {
	limiter := NewKeyedLimiter(limit, burst)
	return func(c *gin.Context) {
		if !limiter.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if id := UserID(c); id > 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
