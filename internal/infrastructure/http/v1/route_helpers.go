// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by handlers that own a route group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Mount registers each handler under its path prefix. Entries whose handler
// is nil are skipped so optional services can be left unwired.
func Mount(rg *gin.RouterGroup, routes map[string]RouteRegistrar) {
	for prefix, h := range routes {
		if h == nil {
			continue
		}
		h.RegisterRoutes(rg.Group(prefix))
	}
}
