package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"vinatravel/pkg/logger"
)

func RequestLogger(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		details := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"trace_id":   c.GetString("trace_id"),
		}
		if len(c.Errors) > 0 {
			details["errors"] = c.Errors.String()
			log.Error("http", "request failed", details)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warn("http", "request completed with server error", details)
			return
		}
		log.Info("http", "request completed", details)
	}
}
