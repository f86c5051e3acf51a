package middleware

import (
	"fmt"
	"time"

	redispkg "github.com/drawing-gallery/core/internal/pkg/redis"
	"github.com/drawing-gallery/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	defaultRateLimit = 50
	rateLimitWindow  = time.Second
)

// RateLimit caps anonymous clients at max requests per second and IP using a
// fixed one-second window counter in Redis. Admins are never limited. A nil
// client or a Redis failure lets the request through.
func RateLimit(client *redispkg.Client, max int) gin.HandlerFunc {
	if max <= 0 {
		max = defaultRateLimit
	}
	return func(c *gin.Context) {
		if client == nil || IsAuthenticated(c) {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("gallery:rate_limit:%s:%d", ip, time.Now().Unix())
		rdb := client.Raw()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}
		if count > int64(max) {
			c.Header("Retry-After", "1")
			response.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
