package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter reads the client on every request; redis may connect after the router is built.
func NewRateLimiter(client func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

// rateLimitKey counts per user when authenticated, otherwise per client IP.
func rateLimitKey(c *gin.Context) string {
	if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok && userId > 0 {
		return fmt.Sprintf("ratelimit:user:%d", userId)
	}
	return "ratelimit:ip:" + c.ClientIP()
}

// Middleware fails open when redis errors; a nil client disables limiting.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := rl.client()
		if client == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := rateLimitKey(c)

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			config.LogError(config.GetLogger(), "rateLimitMiddleware.go", "Middleware", "Incr", key, err)
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, rl.window)
		}
		if count > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
