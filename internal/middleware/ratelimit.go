package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/apexgym/studio-api/internal/service"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
	"github.com/apexgym/studio-api/pkg/ratelimit"
	"github.com/apexgym/studio-api/pkg/response"
)

// RateLimit throttles requests per client IP using the injected limiter. A
// limiter failure lets the request through; throttling is protection, not a
// dependency the endpoint can go down with.
func RateLimit(limiter ratelimit.Limiter, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			if metrics != nil {
				metrics.RecordRateLimited()
			}
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
