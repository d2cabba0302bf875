package supply

import (
	"context"

	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
	"supplyhub/internal/domain"
)

// OrderRepository persists supply orders and their items.
type OrderRepository interface {
	Create(ctx context.Context, order *SupplyOrder) error
	GetByID(ctx context.Context, orderID id.ID) (*SupplyOrder, error)
	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, orderID id.ID) (*SupplyOrder, error)
	// Update writes the header, bumping version. Fails with CONCURRENT_MODIFICATION
	// when order.Version no longer matches.
	Update(ctx context.Context, order *SupplyOrder) error
	// DeleteCascade removes return items, returns, payments, items and the order.
	DeleteCascade(ctx context.Context, orderID id.ID) error

	GetItems(ctx context.Context, orderID id.ID) ([]SupplyOrderItem, error)
	GetItemsForUpdate(ctx context.Context, orderID id.ID) ([]SupplyOrderItem, error)
	// SaveItems replaces all lines of the order.
	SaveItems(ctx context.Context, orderID id.ID, items []SupplyOrderItem) error
	// UpdateItemCounters writes quantity_returned and quantity_accepted.
	UpdateItemCounters(ctx context.Context, items []SupplyOrderItem) error

	List(ctx context.Context, filter OrderListFilter) (domain.ListResult[*OrderSummary], error)
}

// ReturnRepository persists supply returns.
type ReturnRepository interface {
	// Create inserts the header and its items.
	Create(ctx context.Context, ret *SupplyReturn) error
	// GetByID returns the header with items.
	GetByID(ctx context.Context, returnID id.ID) (*SupplyReturn, error)
	ListByOrder(ctx context.Context, orderID id.ID) ([]*SupplyReturn, error)
	List(ctx context.Context, filter ReturnListFilter) (domain.ListResult[*SupplyReturn], error)
}

// PaymentRepository persists supply payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *SupplyPayment) error
	GetByID(ctx context.Context, paymentID id.ID) (*SupplyPayment, error)
	ListByOrder(ctx context.Context, orderID id.ID) ([]*SupplyPayment, error)
	List(ctx context.Context, filter PaymentListFilter) (domain.ListResult[*SupplyPayment], error)
	// SumByOrder returns Σ amount_paid for the order (zero when none).
	SumByOrder(ctx context.Context, orderID id.ID) (types.Money, error)
}

// OrderSummary is a list row with aggregated item counters.
type OrderSummary struct {
	SupplyOrder
	QuantityTotals
}

// OrderListFilter for listing orders.
type OrderListFilter struct {
	domain.ListFilter

	StoreID    *id.ID
	CustomerID *id.ID
	Status     *OrderStatus

	// StoreIDs restricts results to the caller's stores. Set by the service.
	StoreIDs []id.ID
}

// ReturnListFilter for listing returns.
type ReturnListFilter struct {
	domain.ListFilter

	StoreID       *id.ID
	SupplyOrderID *id.ID
	Status        *ReturnStatus

	StoreIDs []id.ID
}

// PaymentListFilter for listing payments.
type PaymentListFilter struct {
	domain.ListFilter

	StoreID       *id.ID
	SupplyOrderID *id.ID

	StoreIDs []id.ID
}
