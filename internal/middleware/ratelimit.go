package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
	"github.com/AntonVanke/xuexinwang/internal/pkg/metrics"
	"github.com/AntonVanke/xuexinwang/internal/pkg/ratelimit"
)

// RateLimit limits requests per client IP for one route. Limiter errors let
// the request through.
func RateLimit(limiter ratelimit.Limiter, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), route+":"+c.ClientIP())
		if err != nil {
			logger.Warn().Err(err).Str("route", route).Msg("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimited.WithLabelValues(route).Inc()
			AbortWithAPIError(c, apperrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
