package main

import (
	"database/sql"
	"time"

	"phonebridge/internal/httpapi"
	"phonebridge/internal/webhook"
	"phonebridge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	authMW   gin.HandlerFunc
	handlers httpapi.Handlers
	webhook  *webhook.Handler
	db       *sql.DB
	redis    *redis.Client
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// PBX webhooks (public). The PBX cannot authenticate; the endpoint
	// answers 200 unconditionally and trusts network-level restrictions.
	r.POST("/webhooks/vitalpbx", deps.webhook.Receive)

	// NOTE: Placeholder login route; real credential validation is not implemented.
	r.POST("/auth/login", deps.handlers.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(deps.authMW)
	{
		v1.GET("/calls", deps.handlers.ListCalls)
		v1.GET("/calls/:call_id", deps.handlers.GetCall)
		v1.POST("/calls/click-to-call", deps.handlers.ClickToCall)

		v1.GET("/extensions", deps.handlers.ListExtensions)

		v1.GET("/popups/stats", deps.handlers.PopupStats)
		v1.POST("/popups/retry-sweep", deps.handlers.RetrySweep)
	}
}
