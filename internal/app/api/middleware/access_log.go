package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/pkg/logctx"
)

// AccessLogMiddleware logs HTTP access using the request-scoped logger
// attached by RequestLoggerMiddleware and enriched by OptionalAuth.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		log := requestLogger(c)
		if log == nil {
			return
		}
		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("http_access", fields...)
	}
}

func requestLogger(c *gin.Context) *zap.SugaredLogger {
	if l, ok := c.Get(logctx.GinLoggerKey); ok {
		if log, ok := l.(*zap.SugaredLogger); ok {
			return log
		}
	}
	return nil
}
