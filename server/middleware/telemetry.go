package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/gostream/observability"
)

// Telemetry wraps each Gin request in a span and records request metrics
// labelled with the matched route. A nil m only records spans. The span is
// also ended when the handler aborts the response with a panic.
func Telemetry(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPRequest)
		c.Request = c.Request.WithContext(ctx)
		if id := RequestIDFrom(ctx); id != "" {
			span.SetAttributes(attribute.String(observability.AttrRequestID, id))
		}
		if m != nil {
			m.RecordRequestStart(ctx)
		}

		defer func() {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			status := c.Writer.Status()
			span.SetAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", status),
			)
			if m != nil {
				m.RecordRequestEnd(ctx, c.Request.Method, route, status, time.Since(start))
			}
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last
			}
			observability.EndSpan(span, err)
		}()

		c.Next()
	}
}
