package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stridefit/admin-gateway/logger"
)

// LoginRateLimiter limits login attempts per client IP to slow brute-force
// runs against admin accounts. It uses Redis INCR/EXPIRE so the limit holds
// across gateway instances. Redis being down never blocks logins — the
// limiter fails open.
func LoginRateLimiter(redisClient redis.UniversalClient, requestsPerWindow int, window time.Duration) gin.HandlerFunc {
	if redisClient == nil {
		// In-memory deployments have no shared counter to lean on.
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("stride:admin:ratelimit:login:%s", c.ClientIP())

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)

		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logger.GetLogger().Warnw("Login rate limit check failed, failing open", "error", err)
			c.Next()
			return
		}

		if incr.Val() > int64(requestsPerWindow) {
			ttl, err := redisClient.TTL(c.Request.Context(), key).Result()
			if err != nil || ttl < 0 {
				ttl = window
			}

			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", requestsPerWindow))
			c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many login attempts, try again later",
			})
			return
		}

		c.Next()
	}
}
