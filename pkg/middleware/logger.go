package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("channel", GetChannel(c.Request.Context())),
		}
		if id := TraceID(c.Request.Context()); id != "" {
			fields = append(fields, zap.String("trace_id", id))
		}

		if c.Writer.Status() >= 500 {
			zap.L().Error("http request", fields...)
			return
		}
		zap.L().Info("http request", fields...)
	}
}

// TraceID returns the active span's trace id, or "" when the request is not traced.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
