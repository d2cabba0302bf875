package v1

import (
	"github.com/gin-gonic/gin"
)

// ResourceRoutes is implemented by every resource handler.
// mutate is prepended to the write routes only.
type ResourceRoutes interface {
	RegisterRoutes(rg *gin.RouterGroup, mutate ...gin.HandlerFunc)
}

// registerResources mounts each handler under its path.
//
// Usage:
//
//	registerResources(v1, mutate, map[string]ResourceRoutes{
//		"/supply-orders": handlers.NewSupplyOrderHandler(base, orders, audit),
//	})
func registerResources(rg *gin.RouterGroup, mutate []gin.HandlerFunc, resources map[string]ResourceRoutes) {
	for path, handler := range resources {
		handler.RegisterRoutes(rg.Group(path), mutate...)
	}
}
