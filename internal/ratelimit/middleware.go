package ratelimit

import (
	"log/slog"
	"net/http"

	"clinicvoice-platform/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests over the per-client limit with 429.
// Limiter errors (e.g. redis unavailable) fail open: dropping legitimate
// leads is worse than briefly losing the abuse guard.
func Middleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "rate limit check failed, allowing request", "err", err)
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}
