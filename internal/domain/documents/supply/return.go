package supply

import (
	"time"

	"supplyhub/internal/core/entity"
	"supplyhub/internal/core/id"
	"supplyhub/internal/core/types"
)

// ReturnStatus tracks physical processing of returned goods.
type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "pending"
	ReturnProcessed ReturnStatus = "processed"
	ReturnCancelled ReturnStatus = "cancelled"
)

// Valid reports whether s is a known return status.
func (s ReturnStatus) Valid() bool {
	return s == ReturnPending || s == ReturnProcessed || s == ReturnCancelled
}

// ItemCondition describes the state of returned goods.
type ItemCondition string

const (
	ConditionGood      ItemCondition = "good"
	ConditionDamaged   ItemCondition = "damaged"
	ConditionDefective ItemCondition = "defective"
	ConditionExpired   ItemCondition = "expired"
)

// Valid reports whether c is a known condition.
func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionDefective, ConditionExpired:
		return true
	}
	return false
}

// SupplyReturn is one batch return against an order. Immutable once stored.
type SupplyReturn struct {
	entity.BaseDocument

	SupplyOrderID id.ID        `db:"supply_order_id"`
	StoreID       id.ID        `db:"store_id"`
	Status        ReturnStatus `db:"status"`

	TotalReturnedAmount types.Money `db:"total_returned_amount"`

	Notes      string    `db:"notes"`
	ReturnDate time.Time `db:"return_date"`

	Items []SupplyReturnItem `db:"-"`
}

// SupplyReturnItem is one returned line.
type SupplyReturnItem struct {
	ID                id.ID         `db:"id"`
	SupplyReturnID    id.ID         `db:"supply_return_id"`
	SupplyOrderItemID id.ID         `db:"supply_order_item_id"`
	QuantityReturned  int64         `db:"quantity_returned"`
	UnitPrice         types.Money   `db:"unit_price"`
	Amount            types.Money   `db:"amount"`
	ReturnReason      string        `db:"return_reason"`
	Condition         ItemCondition `db:"condition"`
}

// newSupplyReturn starts a pending return for the order.
func newSupplyReturn(order *SupplyOrder, notes string, returnDate time.Time) *SupplyReturn {
	return &SupplyReturn{
		BaseDocument:        entity.NewBaseDocument(),
		SupplyOrderID:       order.ID,
		StoreID:             order.StoreID,
		Status:              ReturnPending,
		TotalReturnedAmount: types.Zero(),
		Notes:               notes,
		ReturnDate:          returnDate,
	}
}

// addItem records a returned line priced at the order item's stored price.
func (r *SupplyReturn) addItem(item *SupplyOrderItem, quantity int64, reason string, condition ItemCondition) {
	amount := types.LineTotal(quantity, item.UnitPrice)
	r.Items = append(r.Items, SupplyReturnItem{
		ID:                id.New(),
		SupplyReturnID:    r.ID,
		SupplyOrderItemID: item.ID,
		QuantityReturned:  quantity,
		UnitPrice:         item.UnitPrice,
		Amount:            amount,
		ReturnReason:      reason,
		Condition:         condition,
	})
	r.TotalReturnedAmount = r.TotalReturnedAmount.Add(amount)
}
