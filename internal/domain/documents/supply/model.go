// Package supply implements consignment supply orders: goods handed to a
// customer on credit, later returned in part or paid for.
package supply

import (
	"context"
	"time"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/entity"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
)

// OrderStatus is derived from quantities and payments; see DeriveStatus.
type OrderStatus string

const (
	StatusSupplied          OrderStatus = "supplied"
	StatusPartiallyReturned OrderStatus = "partially_returned"
	StatusFullyReturned     OrderStatus = "fully_returned"
	StatusCompleted         OrderStatus = "completed"
	StatusCancelled         OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusSupplied, StatusPartiallyReturned, StatusFullyReturned, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// SupplyOrder is one consignment transaction between a store and a customer.
type SupplyOrder struct {
	entity.BaseDocument

	StoreID    id.ID `db:"store_id"`
	CustomerID id.ID `db:"customer_id"`
	CashierID  id.ID `db:"cashier_id"`

	Status OrderStatus `db:"status"`

	Subtotal       types.Money `db:"subtotal"`
	DiscountRate   types.Money `db:"discount_rate"`
	DiscountAmount types.Money `db:"discount_amount"`
	TaxAmount      types.Money `db:"tax_amount"`
	TotalAmount    types.Money `db:"total_amount"`

	// TotalPaid mirrors Σ amount_paid of the order's payments.
	TotalPaid types.Money `db:"total_paid"`

	Notes              string     `db:"notes"`
	SupplyDate         time.Time  `db:"supply_date"`
	ExpectedReturnDate *time.Time `db:"expected_return_date"`
	CancelledAt        *time.Time `db:"cancelled_at"`

	Items []SupplyOrderItem `db:"-"`
}

// SupplyOrderItem is one product line. Owned by its order.
type SupplyOrderItem struct {
	ID            id.ID `db:"id"`
	SupplyOrderID id.ID `db:"supply_order_id"`
	LineNo        int   `db:"line_no"`
	ProductID     id.ID `db:"product_id"`

	QuantitySupplied int64 `db:"quantity_supplied"`
	QuantityReturned int64 `db:"quantity_returned"`
	QuantityAccepted int64 `db:"quantity_accepted"`

	UnitPrice  types.Money `db:"unit_price"`
	TotalPrice types.Money `db:"total_price"`
}

// Pending is the quantity neither returned nor accepted yet.
func (i SupplyOrderItem) Pending() int64 {
	return i.QuantitySupplied - i.QuantityReturned - i.QuantityAccepted
}

// NewSupplyOrder creates an empty order in the supplied state.
func NewSupplyOrder(storeID, customerID, cashierID id.ID) *SupplyOrder {
	base := entity.NewBaseDocument()
	return &SupplyOrder{
		BaseDocument:   base,
		StoreID:        storeID,
		CustomerID:     customerID,
		CashierID:      cashierID,
		Status:         StatusSupplied,
		Subtotal:       types.Zero(),
		DiscountRate:   types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
		TotalAmount:    types.Zero(),
		TotalPaid:      types.Zero(),
		SupplyDate:     base.CreatedAt,
		Items:          make([]SupplyOrderItem, 0),
	}
}

// AddItem appends a line and recalculates totals.
func (o *SupplyOrder) AddItem(productID id.ID, quantity int64, unitPrice types.Money) {
	o.Items = append(o.Items, SupplyOrderItem{
		ID:               id.New(),
		SupplyOrderID:    o.ID,
		LineNo:           len(o.Items) + 1,
		ProductID:        productID,
		QuantitySupplied: quantity,
		UnitPrice:        unitPrice,
		TotalPrice:       types.LineTotal(quantity, unitPrice),
	})
	o.Recalculate()
}

// ApplyDiscountRate sets the rate (percent) and recalculates totals.
func (o *SupplyOrder) ApplyDiscountRate(rate types.Money) {
	o.DiscountRate = rate
	o.Recalculate()
}

// Recalculate derives subtotal, discount and total from the lines.
// Tax is not computed here and stays at zero.
func (o *SupplyOrder) Recalculate() {
	subtotal := types.Zero()
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	o.DiscountAmount = types.Percent(subtotal, o.DiscountRate)
	o.TaxAmount = types.Zero()
	o.TotalAmount = o.Subtotal.Sub(o.DiscountAmount).Add(o.TaxAmount)
}

// Outstanding is total_amount minus what has been paid so far.
func (o *SupplyOrder) Outstanding() types.Money {
	return o.TotalAmount.Sub(o.TotalPaid)
}

// Item finds a line by its ID.
func (o *SupplyOrder) Item(itemID id.ID) *SupplyOrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// HasReturns reports whether any quantity has been returned.
func (o *SupplyOrder) HasReturns() bool {
	for _, item := range o.Items {
		if item.QuantityReturned > 0 {
			return true
		}
	}
	return false
}

// AcceptPending converts every pending quantity into accepted.
// Called when the order is paid in full.
func (o *SupplyOrder) AcceptPending() {
	for i := range o.Items {
		if pending := o.Items[i].Pending(); pending > 0 {
			o.Items[i].QuantityAccepted += pending
		}
	}
}

// QuantityTotals aggregates item counters.
type QuantityTotals struct {
	Supplied int64 `db:"total_quantity_supplied"`
	Returned int64 `db:"total_quantity_returned"`
	Accepted int64 `db:"total_quantity_accepted"`
}

// Totals sums the counters of all lines.
func (o *SupplyOrder) Totals() QuantityTotals {
	var t QuantityTotals
	for _, item := range o.Items {
		t.Supplied += item.QuantitySupplied
		t.Returned += item.QuantityReturned
		t.Accepted += item.QuantityAccepted
	}
	return t
}

// Validate implements entity.Validatable.
func (o *SupplyOrder) Validate(_ context.Context) error {
	if id.IsNil(o.StoreID) {
		return apperror.NewValidation("store is required").WithDetail("field", "store_id")
	}
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customer_id")
	}
	if id.IsNil(o.CashierID) {
		return apperror.NewValidation("cashier is required").WithDetail("field", "cashier_id")
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	if o.ExpectedReturnDate != nil && o.ExpectedReturnDate.Before(o.SupplyDate) {
		return apperror.NewValidation("expected return date is before supply date").
			WithDetail("field", "expected_return_date")
	}

	for _, item := range o.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "items").
				WithDetail("line_no", item.LineNo)
		}
		if item.QuantitySupplied <= 0 {
			return apperror.NewValidation("quantity_supplied must be positive").
				WithDetail("field", "items").
				WithDetail("line_no", item.LineNo)
		}
		if item.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit_price must not be negative").
				WithDetail("field", "items").
				WithDetail("line_no", item.LineNo)
		}
		if item.QuantityReturned+item.QuantityAccepted > item.QuantitySupplied {
			return apperror.NewInvalidQuantity(item.ID.String(), item.QuantityReturned+item.QuantityAccepted, item.QuantitySupplied)
		}
	}

	return nil
}
