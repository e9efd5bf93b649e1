package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"evaluagent-relay-go/internal/logger"
)

// logCtxKey is the Gin context key holding the request scoped log entry.
const logCtxKey = "request_log"

// RequestLogger attaches a request scoped entry (with req_id) to the context
// and writes one access line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := log.WithRequest(c.Request)
		if id, ok := entry.Data["req_id"].(string); ok {
			c.Header(logger.RequestIDHeader, id)
		}
		c.Set(logCtxKey, entry)

		start := time.Now()
		c.Next()

		entry.WithFields(logrus.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request completed")
	}
}

// RequestLog returns the entry set by RequestLogger, or a bare one.
func RequestLog(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(logCtxKey); ok {
		if e, ok := v.(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
