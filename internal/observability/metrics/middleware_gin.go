package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records request counts and latency per matched route. The
// route template (not the raw path) keys the metric so ids do not explode
// label cardinality.
func GinMiddleware(h *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.Observe(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
