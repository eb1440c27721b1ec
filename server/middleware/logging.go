package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/logger"
)

// slowRequest marks requests worth a second look in the logs.
const slowRequest = 500 * time.Millisecond

// RequestLogger logs every request with method, route, status and latency.
// Probe paths are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isProbePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}
		fields := map[string]interface{}{
			"method":           c.Request.Method,
			"path":             path,
			"route":            c.FullPath(),
			logger.FieldStatus: status,
			"duration_ms":      latency.Milliseconds(),
			"client":           c.ClientIP(),
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Error("Request completed", fields)
		case status >= 400:
			l.Warn("Request completed", fields)
		default:
			l.Debug("Request completed", fields)
		}
	}
}

func isProbePath(path string) bool {
	switch path {
	case "/health", "/health/ready", "/version":
		return true
	}
	return false
}
