package supply

import (
	"context"
	"fmt"
	"time"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
	"supplyhub/pkg/logger"
)

// OrderItemInput is one requested line. A nil UnitPrice takes the catalog price.
type OrderItemInput struct {
	ProductID        id.ID
	QuantitySupplied int64
	UnitPrice        *types.Money
}

// CreateOrderInput carries the fields a client may set on a new order.
type CreateOrderInput struct {
	StoreID            id.ID
	CustomerID         id.ID
	CashierID          id.ID
	Notes              string
	SupplyDate         *time.Time
	ExpectedReturnDate *time.Time
	Items              []OrderItemInput
}

// UpdateOrderInput is the whitelist of mutable fields. Nil means unchanged.
type UpdateOrderInput struct {
	// Version enables optimistic locking when set.
	Version            *int
	CustomerID         *id.ID
	Notes              *string
	SupplyDate         *time.Time
	ExpectedReturnDate *time.Time
	// Items replaces all lines; allowed only before any return or payment.
	Items []OrderItemInput
}

// OrderDetails is an order with its returns and payments expanded.
type OrderDetails struct {
	Order    *SupplyOrder
	Returns  []*SupplyReturn
	Payments []*SupplyPayment
}

// OrderManager creates, edits and removes supply orders.
type OrderManager struct {
	core
	products  ProductStockLookup
	discounts RateResolver
}

// NewOrderManager creates the manager. discounts decides the rate applied to
// new orders; pass FixedRate in tests.
func NewOrderManager(deps Deps, products ProductStockLookup, discounts RateResolver) *OrderManager {
	return &OrderManager{
		core:      newCore(deps),
		products:  products,
		discounts: discounts,
	}
}

// Create prices, numbers and stores a new order with its items.
func (m *OrderManager) Create(ctx context.Context, in CreateOrderInput) (*SupplyOrder, error) {
	order := NewSupplyOrder(in.StoreID, in.CustomerID, in.CashierID)
	order.Notes = in.Notes
	order.ExpectedReturnDate = utcPtr(in.ExpectedReturnDate)
	if in.SupplyDate != nil {
		order.SupplyDate = in.SupplyDate.UTC()
	}

	if id.IsNil(in.StoreID) || id.IsNil(in.CustomerID) || id.IsNil(in.CashierID) || len(in.Items) == 0 {
		// Report the first missing field before any collaborator is called.
		return nil, order.Validate(ctx)
	}
	if err := checkStoreAccess(ctx, in.StoreID); err != nil {
		return nil, err
	}

	if err := m.buildItems(ctx, order, in.Items); err != nil {
		return nil, err
	}

	rate, err := m.discounts.Resolve(ctx, in.StoreID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	order.ApplyDiscountRate(rate)
	order.refreshStatus()

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	err = m.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := m.nextNumber(ctx, OrderPrefix, order.SupplyDate)
		if err != nil {
			return err
		}
		order.Number = number

		if err := m.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := m.Orders.SaveItems(ctx, order.ID, order.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		if err := m.audit(ctx, AggregateOrder, order.ID, domain.AuditActionCreate, orderSnapshot(order)); err != nil {
			return err
		}
		return m.publish(ctx, AggregateOrder, order.ID, EventOrderCreated, orderEvent(order))
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "supply order created",
		"id", order.ID,
		"number", order.Number,
		"total", order.TotalAmount.String(),
	)
	return order, nil
}

// buildItems resolves prices and appends lines to order.
func (m *OrderManager) buildItems(ctx context.Context, order *SupplyOrder, items []OrderItemInput) error {
	for i, in := range items {
		if id.IsNil(in.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("line_no", i+1)
		}
		if in.QuantitySupplied <= 0 {
			return apperror.NewValidation("quantity_supplied must be positive").
				WithDetail("field", "items").
				WithDetail("line_no", i+1)
		}

		var price types.Money
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		} else {
			product, err := m.products.GetProduct(ctx, in.ProductID, order.StoreID)
			if err != nil {
				return apperror.Wrap(err)
			}
			price = product.Price
		}
		order.AddItem(in.ProductID, in.QuantitySupplied, price)
	}
	return nil
}

// Get returns the order with its items.
func (m *OrderManager) Get(ctx context.Context, orderID id.ID) (*SupplyOrder, error) {
	order, err := m.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	if err := checkStoreAccess(ctx, order.StoreID); err != nil {
		return nil, err
	}

	items, err := m.Orders.GetItems(ctx, orderID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	order.Items = items
	return order, nil
}

// GetDetails returns the order with items, returns and payments.
func (m *OrderManager) GetDetails(ctx context.Context, orderID id.ID) (*OrderDetails, error) {
	order, err := m.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	returns, err := m.Returns.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	payments, err := m.Payments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	return &OrderDetails{Order: order, Returns: returns, Payments: payments}, nil
}

// List returns orders with aggregated item counters.
func (m *OrderManager) List(ctx context.Context, filter OrderListFilter) (domain.ListResult[*OrderSummary], error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.ListResult[*OrderSummary]{}, apperror.NewValidation("unknown status").
			WithDetail("status", string(*filter.Status))
	}
	scoped, err := scopeStores(ctx, filter.StoreID)
	if err != nil {
		return domain.ListResult[*OrderSummary]{}, err
	}
	filter.StoreIDs = scoped
	filter.Normalize()

	result, err := m.Orders.List(ctx, filter)
	if err != nil {
		return result, apperror.Wrap(err)
	}
	return result, nil
}

// Update applies whitelisted changes. Completed and cancelled orders are frozen.
func (m *OrderManager) Update(ctx context.Context, orderID id.ID, in UpdateOrderInput) (*SupplyOrder, error) {
	var order *SupplyOrder

	err := m.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = m.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if in.Version != nil && *in.Version != order.Version {
			return apperror.NewConcurrentModification(AggregateOrder, orderID.String())
		}

		status := DeriveStatus(order)
		if isClosed(status) {
			return apperror.NewInvalidState("order can no longer be modified", string(status))
		}

		changes := map[string]any{}
		if in.CustomerID != nil && *in.CustomerID != order.CustomerID {
			changes["customer_id"] = change(order.CustomerID, *in.CustomerID)
			order.CustomerID = *in.CustomerID
		}
		if in.Notes != nil && *in.Notes != order.Notes {
			changes["notes"] = change(order.Notes, *in.Notes)
			order.Notes = *in.Notes
		}
		if in.SupplyDate != nil && !in.SupplyDate.Equal(order.SupplyDate) {
			changes["supply_date"] = change(order.SupplyDate, in.SupplyDate.UTC())
			order.SupplyDate = in.SupplyDate.UTC()
		}
		if in.ExpectedReturnDate != nil && !sameTime(in.ExpectedReturnDate, order.ExpectedReturnDate) {
			changes["expected_return_date"] = change(order.ExpectedReturnDate, in.ExpectedReturnDate.UTC())
			order.ExpectedReturnDate = utcPtr(in.ExpectedReturnDate)
		}

		if in.Items != nil {
			if status != StatusSupplied || order.TotalPaid.IsPositive() || order.HasReturns() {
				return apperror.NewInvalidState("items can only be replaced before any return or payment", string(status))
			}
			oldTotal := order.TotalAmount
			order.Items = order.Items[:0]
			if err := m.buildItems(ctx, order, in.Items); err != nil {
				return err
			}
			order.Recalculate()
			changes["items"] = len(order.Items)
			changes["total_amount"] = change(oldTotal.String(), order.TotalAmount.String())
		}

		if err := order.Validate(ctx); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		if in.Items != nil {
			if err := m.Orders.SaveItems(ctx, order.ID, order.Items); err != nil {
				return fmt.Errorf("save items: %w", err)
			}
		}
		if err := m.saveOrderState(ctx, order, false); err != nil {
			return err
		}
		return m.audit(ctx, AggregateOrder, order.ID, domain.AuditActionUpdate, changes)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "supply order updated", "id", order.ID, "number", order.Number)
	return order, nil
}

// Delete removes the order and everything attached to it in one transaction.
// Completed orders cannot be deleted.
func (m *OrderManager) Delete(ctx context.Context, orderID id.ID) error {
	var number string

	err := m.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := m.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if status := DeriveStatus(order); status == StatusCompleted {
			return apperror.NewInvalidState("completed orders cannot be deleted", string(status))
		}
		number = order.Number

		if err := m.Orders.DeleteCascade(ctx, orderID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return m.audit(ctx, AggregateOrder, orderID, domain.AuditActionDelete, orderSnapshot(order))
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "supply order deleted", "id", orderID, "number", number)
	return nil
}

// Cancel terminates an order that has not received any payment.
func (m *OrderManager) Cancel(ctx context.Context, orderID id.ID) (*SupplyOrder, error) {
	var order *SupplyOrder

	err := m.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = m.lockOrder(ctx, orderID)
		if err != nil {
			return err
		}

		status := DeriveStatus(order)
		if isClosed(status) {
			return apperror.NewInvalidState("order is already closed", string(status))
		}
		if order.TotalPaid.IsPositive() {
			return apperror.NewInvalidState("orders with payments cannot be cancelled", string(status)).
				WithDetail("total_paid", order.TotalPaid.String())
		}

		cancelledAt := m.now()
		order.CancelledAt = &cancelledAt
		if err := m.saveOrderState(ctx, order, false); err != nil {
			return err
		}
		if err := m.audit(ctx, AggregateOrder, order.ID, domain.AuditActionCancel, map[string]any{
			"status": change(status, order.Status),
		}); err != nil {
			return err
		}
		return m.publish(ctx, AggregateOrder, order.ID, EventOrderCancelled, orderEvent(order))
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "supply order cancelled", "id", order.ID, "number", order.Number)
	return order, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
