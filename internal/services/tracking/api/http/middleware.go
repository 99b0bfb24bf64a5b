package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/punchcard-hq/punchcard/internal/platform/logx"
)

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-Id"

// requestIDKey is the gin context key the handlers read the id from.
const requestIDKey = "request_id"

// RequestID assigns every request a correlation id, honoring one supplied
// by the client. The id is echoed in the response and stamped onto emitted
// events.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger emits one structured log line per request.
func RequestLogger(log logx.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "http.request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.String("request_id", requestID(c)),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
