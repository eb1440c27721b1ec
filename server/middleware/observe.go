package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/observability"
)

// Observe wraps each request in a span and records request metrics.
// metrics may be nil; spans go to the global tracer provider.
func Observe(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPRequest,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
			),
		)
		defer span.End()

		if id, ok := c.Get(RequestIDKey); ok {
			span.SetAttributes(attribute.String(observability.AttrRequestID, id.(string)))
		}
		if sc := span.SpanContext(); sc.HasTraceID() {
			ctx = logger.ContextWithTraceID(ctx, sc.TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		metrics.RecordRequestStart(ctx)
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}
		metrics.RecordRequestEnd(ctx, c.Request.Method, route, status, time.Since(start))
	}
}
