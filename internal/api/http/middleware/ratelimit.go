package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter holds one token bucket per client IP. Device traffic arrives
// over MQTT, so these limits only have to cover dashboard and API clients.
type RateLimiter struct {
	buckets sync.Map // client IP -> *rate.Limiter
	limit   rate.Limit
	burst   int
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit: rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket, _ := rl.buckets.LoadOrStore(c.ClientIP(), rate.NewLimiter(rl.limit, rl.burst))

		if !bucket.(*rate.Limiter).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
