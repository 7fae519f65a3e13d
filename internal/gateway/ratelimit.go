package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared across every CORE
// replica via Redis, rather than an in-process map keyed by client IP,
// which would let a client bypass its limit simply by landing on a
// different replica.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// Allow increments key's counter for the current window and reports
// whether it is still under the limit. If Redis is unreachable the
// request is allowed through rather than turning a cache outage into a
// full API outage.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.client == nil {
		return true
	}
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window/time.Second))

	count, err := rl.client.Incr(ctx, bucket).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		rl.client.Expire(ctx, bucket, rl.window)
	}
	return int(count) <= rl.limit
}

func (g *Gateway) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.rateLimiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
