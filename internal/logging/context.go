package logging

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"

	// TraceHeader carries the trace ID across the HTTP boundary
	TraceHeader = "X-Trace-ID"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return Default()
	}
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	ctx = context.WithValue(ctx, loggerKey, l)
	if l.traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, l.traceID)
	}
	return ctx
}

// TraceIDFromContext returns the trace ID stored in ctx, or ""
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// ExchangeContext creates a logger context for exchange adapter calls
func ExchangeContext(ctx context.Context, exchange, source string) *Logger {
	return FromContext(ctx).WithFields(map[string]interface{}{
		"exchange": exchange,
		"source":   source,
	}).WithComponent(exchange)
}

// CancelContext creates a logger context for a single cancel attempt
func CancelContext(ctx context.Context, source, symbol, orderID string) *Logger {
	return FromContext(ctx).WithFields(map[string]interface{}{
		"source":   source,
		"symbol":   symbol,
		"order_id": orderID,
	}).WithComponent("cancel")
}

// GinMiddleware attaches a request-scoped logger to every request and logs completion.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_addr": c.ClientIP(),
		}).WithComponent("http")

		c.Request = c.Request.WithContext(NewContext(c.Request.Context(), l))
		c.Header(TraceHeader, traceID)

		c.Next()

		l.WithDuration(time.Since(start)).WithField("status_code", c.Writer.Status()).Info("Request completed")
	}
}
