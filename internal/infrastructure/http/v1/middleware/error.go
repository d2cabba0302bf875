package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/infrastructure/http/v1/dto"
	"supplyhub/pkg/logger"
)

// ErrorHandler middleware transforms errors into the failure envelope.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		var body dto.ErrorResponse

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			status = appErr.HTTPStatus
			body = dto.NewErrorResponse(appErr.Code, appErr.Message, appErr.Details)
		} else {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			body = dto.NewErrorResponse(apperror.CodeInternal, "Internal server error", map[string]any{
				"request_id": c.GetString("request_id"),
			})
		}

		// Mark idempotency as failed with the exact response we return (best-effort).
		if key, store := idempotencyFromContext(c); store != nil {
			if ferr := store.FailKey(c.Request.Context(), key, status, "application/json", body); ferr != nil {
				logger.Warn(c.Request.Context(), "fail idempotency key", "error", ferr)
			}
		}

		c.JSON(status, body)
	}
}
