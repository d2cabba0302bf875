package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/storage/postgres"
	"supplyhub/pkg/logger"
)

// Templates known to the messaging service.
const (
	TemplateOrderCreated   = "supply_order_created"
	TemplateOrderCompleted = "supply_order_completed"
	TemplateOrderCancelled = "supply_order_cancelled"
	TemplateReturnCreated  = "supply_return_created"
	TemplatePaymentCreated = "supply_payment_created"
)

// Dispatcher implements postgres.OutboxHandler.
type Dispatcher struct {
	notifier Notifier
}

var _ postgres.OutboxHandler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher delivering through notifier.
func NewDispatcher(notifier Notifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Handle renders msg and delivers it. Unknown event types are acknowledged
// so they do not block the outbox.
func (d *Dispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	n, ok, err := render(msg)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug(ctx, "no notification for event", "event_type", msg.EventType)
		return nil
	}
	return d.notifier.Notify(ctx, n)
}

func render(msg *postgres.OutboxMessage) (Notification, bool, error) {
	switch msg.EventType {
	case supply.EventOrderCreated, supply.EventOrderCompleted, supply.EventOrderCancelled:
		var p supply.OrderEventPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return Notification{}, false, fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return Notification{
			Template:   orderTemplate(msg.EventType),
			EventType:  msg.EventType,
			StoreID:    p.StoreID,
			CustomerID: p.CustomerID,
			Data: map[string]string{
				"number":       p.Number,
				"status":       p.Status,
				"total_amount": p.TotalAmount,
				"total_paid":   p.TotalPaid,
			},
		}, true, nil

	case supply.EventReturnCreated:
		var p supply.ReturnEventPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return Notification{}, false, fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return Notification{
			Template:   TemplateReturnCreated,
			EventType:  msg.EventType,
			StoreID:    p.StoreID,
			CustomerID: p.CustomerID,
			Data: map[string]string{
				"number":                p.Number,
				"supply_order_number":   p.OrderNumber,
				"total_returned_amount": p.TotalReturnedAmount,
			},
		}, true, nil

	case supply.EventPaymentCreated:
		var p supply.PaymentEventPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return Notification{}, false, fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return Notification{
			Template:   TemplatePaymentCreated,
			EventType:  msg.EventType,
			StoreID:    p.StoreID,
			CustomerID: p.CustomerID,
			Data: map[string]string{
				"number":              p.Number,
				"supply_order_number": p.OrderNumber,
				"payment_method":      p.Method,
				"amount_paid":         p.AmountPaid,
				"remaining":           p.Remaining,
			},
		}, true, nil
	}
	return Notification{}, false, nil
}

func orderTemplate(eventType string) string {
	switch eventType {
	case supply.EventOrderCompleted:
		return TemplateOrderCompleted
	case supply.EventOrderCancelled:
		return TemplateOrderCancelled
	default:
		return TemplateOrderCreated
	}
}
