// Package middleware provides HTTP middleware for the facturard API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"facturard/pkg/logger"
)

// ContextLogger makes log the logger returned by logger.FromContext for the
// rest of the request. Trace and owner fields are added at log time.
func ContextLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
