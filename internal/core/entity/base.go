// Package entity holds fields shared by persisted supply documents.
package entity

import (
	"context"
	"time"

	"supplyhub/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants without database access.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseDocument contains the identity and bookkeeping columns of a document.
type BaseDocument struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id"`

	// Number is the human-readable number assigned by the numerator
	Number string `db:"number"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewBaseDocument creates a BaseDocument with a generated ID.
func NewBaseDocument() BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		ID:        id.New(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records the update time. Version is bumped by the repository.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
}
