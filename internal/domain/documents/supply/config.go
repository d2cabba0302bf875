package supply

import "supplyhub/internal/core/numerator"

// Number prefixes.
const (
	OrderPrefix   = "SUP"
	ReturnPrefix  = "RET"
	PaymentPrefix = "PAY"
)

// Aggregate and event names written to the outbox.
const (
	AggregateOrder   = "supply_order"
	AggregateReturn  = "supply_return"
	AggregatePayment = "supply_payment"

	EventOrderCreated   = "supply_order.created"
	EventOrderCancelled = "supply_order.cancelled"
	EventOrderCompleted = "supply_order.completed"
	EventReturnCreated  = "supply_return.created"
	EventPaymentCreated = "supply_payment.created"
)

// NumberingOptions returns the numerator options per document prefix.
// Payments are financial documents and always use the strict sequence.
func NumberingOptions(prefix string, strategy numerator.Strategy, rangeSize int64) *numerator.Options {
	if prefix == PaymentPrefix {
		return numerator.DefaultOptions()
	}
	return &numerator.Options{Strategy: strategy, RangeSize: rangeSize}
}
