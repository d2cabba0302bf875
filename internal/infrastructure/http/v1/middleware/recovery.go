// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/apperror"
	appctx "supplyhub/internal/core/context"
	"supplyhub/pkg/logger"
)

// Recovery turns a handler panic into an INTERNAL_ERROR pushed to c.Errors,
// so ErrorHandler renders the envelope and fails any pending idempotency key.
// http.ErrAbortHandler is re-raised for net/http to drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"error", rec,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			// Headers already went out; the client sees a truncated body.
			if c.Writer.Written() {
				c.Abort()
				return
			}

			appErr := apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", c.Request.Method, c.FullPath(), rec))
			if requestID := appctx.GetRequestID(ctx); requestID != "" {
				appErr.WithDetail("request_id", requestID)
			}
			_ = c.Error(appErr)
			c.Abort()
		}()
		c.Next()
	}
}
