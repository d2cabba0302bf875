// Package dto provides Data Transfer Objects for API requests/responses.
// JSON names are snake_case.
package dto

import (
	"time"

	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
)

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// ListFilter converts to the domain filter.
func (p PaginationRequest) ListFilter() domain.ListFilter {
	return domain.ListFilter{Limit: p.Limit, Offset: p.Offset}
}

// PaginationResponse contains pagination metadata.
type PaginationResponse struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewPagination builds pagination metadata from a list result.
func NewPagination[T any](r domain.ListResult[T]) PaginationResponse {
	return PaginationResponse{Total: r.TotalCount, Limit: r.Limit, Offset: r.Offset}
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the failure envelope.
func NewErrorResponse(code, message string, details map[string]any) ErrorResponse {
	return ErrorResponse{Success: false, Error: message, Code: code, Details: details}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// money renders an amount with two decimals.
func money(m types.Money) string {
	return m.StringFixed(types.MoneyScale)
}

// parseID parses a required id. Binding tags have already checked the format.
func parseID(s string) id.ID {
	v, _ := id.Parse(s)
	return v
}

// parseOptionalID returns nil for an empty or malformed value.
func parseOptionalID(s string) *id.ID {
	v, err := id.ParseOptional(s)
	if err != nil {
		return nil
	}
	return v
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
