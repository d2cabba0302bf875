package supply

import (
	"context"
	"fmt"
	"time"

	"supplyhub/internal/core/apperror"
	appctx "supplyhub/internal/core/context"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/numerator"
	"supplyhub/internal/core/tx"
	"supplyhub/internal/domain"
)

// Deps wires the collaborators shared by OrderManager, ReturnProcessor and
// PaymentProcessor.
type Deps struct {
	Orders   OrderRepository
	Returns  ReturnRepository
	Payments PaymentRepository

	TxManager tx.Manager
	Numerator numerator.Generator
	// NumberStrategy applies to order and return numbers.
	NumberStrategy numerator.Strategy
	// NumberRangeSize is the block reserved per round trip by the cached strategy.
	NumberRangeSize int64

	Events domain.EventPublisher // optional
	Audit  domain.AuditLogger    // optional

	Now func() time.Time // optional, defaults to time.Now
}

// core holds the helpers every processor needs.
type core struct {
	Deps
}

func newCore(d Deps) core {
	if d.Now == nil {
		d.Now = time.Now
	}
	return core{Deps: d}
}

func (c *core) now() time.Time {
	return c.Now().UTC()
}

// lockOrder loads the order with its items under row locks and refreshes
// TotalPaid from the payment rows. Must run inside a transaction.
func (c *core) lockOrder(ctx context.Context, orderID id.ID) (*SupplyOrder, error) {
	order, err := c.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkStoreAccess(ctx, order.StoreID); err != nil {
		return nil, err
	}

	items, err := c.Orders.GetItemsForUpdate(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("lock items: %w", err)
	}
	order.Items = items

	paid, err := c.Payments.SumByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	order.TotalPaid = paid
	return order, nil
}

// saveOrderState persists derived status and counters after a mutation.
func (c *core) saveOrderState(ctx context.Context, order *SupplyOrder, countersChanged bool) error {
	if countersChanged {
		if err := c.Orders.UpdateItemCounters(ctx, order.Items); err != nil {
			return fmt.Errorf("update item counters: %w", err)
		}
	}
	order.refreshStatus()
	if err := c.Orders.Update(ctx, order); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	order.Touch()
	return nil
}

func (c *core) nextNumber(ctx context.Context, prefix string, period time.Time) (string, error) {
	opts := NumberingOptions(prefix, c.NumberStrategy, c.NumberRangeSize)
	number, err := c.Numerator.GetNextNumber(ctx, numerator.DefaultConfig(prefix), opts, period)
	if err != nil {
		return "", fmt.Errorf("generate %s number: %w", prefix, err)
	}
	return number, nil
}

func (c *core) publish(ctx context.Context, aggregate string, aggregateID id.ID, eventType string, payload any) error {
	if c.Events == nil {
		return nil
	}
	err := c.Events.Publish(ctx, domain.Event{
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (c *core) audit(ctx context.Context, entityType string, entityID id.ID, action domain.AuditAction, changes map[string]any) error {
	if c.Audit == nil {
		return nil
	}
	if err := c.Audit.LogChange(ctx, entityType, entityID, action, changes); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

// checkStoreAccess rejects users acting on a store outside their scope.
func checkStoreAccess(ctx context.Context, storeID id.ID) error {
	if !appctx.HasStoreAccess(ctx, storeID.String()) {
		return apperror.NewForbidden("no access to store").WithDetail("store_id", storeID.String())
	}
	return nil
}

// scopeStores narrows a list query to the caller's stores.
func scopeStores(ctx context.Context, requested *id.ID) ([]id.ID, error) {
	if requested != nil {
		return nil, checkStoreAccess(ctx, *requested)
	}
	user := appctx.GetUser(ctx)
	if user == nil || user.IsAdmin {
		return nil, nil
	}
	scoped := make([]id.ID, 0, len(user.StoreIDs))
	for _, s := range user.StoreIDs {
		storeID, err := id.Parse(s)
		if err != nil {
			continue
		}
		scoped = append(scoped, storeID)
	}
	if len(scoped) == 0 {
		return nil, apperror.NewForbidden("user has no store access")
	}
	return scoped, nil
}
