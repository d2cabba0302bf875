// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/apperror"
	appctx "supplyhub/internal/core/context"
	"supplyhub/internal/core/id"
	"supplyhub/internal/infrastructure/http/v1/middleware"
	"supplyhub/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, validationError("invalid request body", err))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, validationError("invalid query parameters", err))
		return false
	}
	return true
}

func validationError(message string, err error) *apperror.AppError {
	appErr := apperror.NewValidation(message)
	for k, v := range middleware.ValidationDetails(err) {
		appErr.WithDetail(k, v)
	}
	return appErr
}

// ParseID reads the :id path parameter.
func (h *BaseHandler) ParseID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return id.ID{}, false
	}
	return v, true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// GetUserID extracts user ID from request context.
func (h *BaseHandler) GetUserID(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// CompleteIdempotency stores the response for replay under the request's key.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key := c.GetString(middleware.ContextIdempotencyKey)
	if key == "" {
		return
	}
	store, _ := c.Get(middleware.ContextIdempotencyStore)
	finisher, ok := store.(middleware.IdempotencyFinisher)
	if !ok {
		return
	}
	if err := finisher.CompleteKey(c.Request.Context(), key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "complete idempotency key", "key", key, "error", err)
	}
}

// Respond writes a success envelope: {"success": true, <key>: data, ...}.
func (h *BaseHandler) Respond(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	h.CompleteIdempotency(c, status, "application/json", body)
	c.JSON(status, body)
}

// OK sends 200 with the envelope.
func (h *BaseHandler) OK(c *gin.Context, fields gin.H) {
	h.Respond(c, http.StatusOK, fields)
}

// Created sends 201 with the envelope.
func (h *BaseHandler) Created(c *gin.Context, fields gin.H) {
	h.Respond(c, http.StatusCreated, fields)
}

// chain appends handler to a copy of mw.
func chain(mw []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clip(mw), handler)
}
