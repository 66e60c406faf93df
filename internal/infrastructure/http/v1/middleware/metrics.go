package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"facturard/internal/infrastructure/metrics"
)

// Metrics observes request latency per route template.
// Unmatched routes are grouped under "unmatched" to keep label cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
