package controllers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/AntonVanke/xuexinwang/internal/pkg/ratelimit"
)

// HealthController reports dependency health
type HealthController struct {
	db    *sql.DB
	redis *redis.Client // nil when Redis is not configured
}

// NewHealthController creates a new HealthController
func NewHealthController(db *sql.DB, redisClient *redis.Client) *HealthController {
	return &HealthController{db: db, redis: redisClient}
}

// Health pings the database and Redis
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "up", "redis": "disabled"}

	if err := c.db.PingContext(reqCtx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "down"
	}

	if c.redis != nil {
		if ratelimit.Healthy(reqCtx, c.redis) {
			body["redis"] = "up"
		} else {
			body["redis"] = "down"
		}
	}

	ctx.JSON(status, body)
}
