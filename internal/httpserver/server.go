package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"evaluagent-relay-go/internal/handlers"
	"evaluagent-relay-go/internal/logger"
)

// NewRouter wires the liveness check and the webhook. The gin mode is left to
// the caller.
// Public: /health, /api/webhook
func NewRouter(log *logger.Logger, h handlers.EventHandler, processTimeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(log))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterWebhookRoutes(r, h, processTimeout)

	return r
}
