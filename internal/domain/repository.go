// Package domain provides types shared by the supply domain packages.
package domain

// Pagination bounds applied to every list endpoint.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// OrderBy specifies sorting (e.g., "supply_date DESC")
	OrderBy string

	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T
	TotalCount int64
	Limit      int
	Offset     int
}
