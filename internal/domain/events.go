package domain

import (
	"context"

	"supplyhub/internal/core/id"
)

// Event is a domain event written to the transactional outbox.
// Delivery to notification channels happens asynchronously in the worker.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher stores events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// AuditAction names an audited operation.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionCancel AuditAction = "cancel"
	AuditActionReturn AuditAction = "return"
	AuditActionPay    AuditAction = "pay"
)

// AuditLogger records entity changes inside the caller's transaction.
type AuditLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) error
}
