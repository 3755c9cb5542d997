package main

import (
	"database/sql"
	"net/http"
	"time"

	"call-signaling/internal/httpapi"
	"call-signaling/internal/signaling"
	"call-signaling/pkg/logger"
	"call-signaling/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	Signaling *signaling.Service
	AuthMW    gin.HandlerFunc
	DB        *sql.DB
	Redis     *redis.Client
}

const readinessTimeout = 2 * time.Second

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := utils.HealthCheck(ctx, d.DB, readinessTimeout); err != nil {
			logger.FromGin(c).Warn("readiness: postgres", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "postgres"})
			return
		}
		if err := utils.RedisHealthCheck(ctx, d.Redis, readinessTimeout); err != nil {
			logger.FromGin(c).Warn("readiness: redis", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// protected API, identity resolved once per request
	h := httpapi.Handlers{Signaling: d.Signaling}
	h.Register(r.Group(""), d.AuthMW)
}
