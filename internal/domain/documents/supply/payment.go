package supply

import (
	"time"

	"supplyhub/internal/core/entity"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
)

// PaymentMethod is how money was collected out-of-band.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
	PaymentOther  PaymentMethod = "other"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile, PaymentOther:
		return true
	}
	return false
}

// SupplyPayment is one payment against an order. Immutable.
type SupplyPayment struct {
	entity.BaseDocument

	SupplyOrderID id.ID         `db:"supply_order_id"`
	StoreID       id.ID         `db:"store_id"`
	PaymentMethod PaymentMethod `db:"payment_method"`
	AmountPaid    types.Money   `db:"amount_paid"`
	PaymentDate   time.Time     `db:"payment_date"`
	Notes         string        `db:"notes"`
}

func newSupplyPayment(order *SupplyOrder, method PaymentMethod, amount types.Money, notes string, paidAt time.Time) *SupplyPayment {
	return &SupplyPayment{
		BaseDocument:  entity.NewBaseDocument(),
		SupplyOrderID: order.ID,
		StoreID:       order.StoreID,
		PaymentMethod: method,
		AmountPaid:    amount,
		PaymentDate:   paidAt,
		Notes:         notes,
	}
}
