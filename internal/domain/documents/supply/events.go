package supply

// Payloads written to the outbox. The worker turns them into customer
// notifications, so they carry what a message template needs.

// OrderEventPayload describes an order lifecycle event.
type OrderEventPayload struct {
	OrderID     string `json:"supply_order_id"`
	Number      string `json:"number"`
	StoreID     string `json:"store_id"`
	CustomerID  string `json:"customer_id"`
	Status      string `json:"status"`
	TotalAmount string `json:"total_amount"`
	TotalPaid   string `json:"total_paid"`
}

// ReturnEventPayload describes a recorded return.
type ReturnEventPayload struct {
	ReturnID            string `json:"supply_return_id"`
	Number              string `json:"number"`
	OrderID             string `json:"supply_order_id"`
	OrderNumber         string `json:"supply_order_number"`
	StoreID             string `json:"store_id"`
	CustomerID          string `json:"customer_id"`
	TotalReturnedAmount string `json:"total_returned_amount"`
	Lines               int    `json:"lines"`
}

// PaymentEventPayload describes a recorded payment.
type PaymentEventPayload struct {
	PaymentID   string `json:"supply_payment_id"`
	Number      string `json:"number"`
	OrderID     string `json:"supply_order_id"`
	OrderNumber string `json:"supply_order_number"`
	StoreID     string `json:"store_id"`
	CustomerID  string `json:"customer_id"`
	Method      string `json:"payment_method"`
	AmountPaid  string `json:"amount_paid"`
	Remaining   string `json:"remaining"`
}

func orderEvent(o *SupplyOrder) OrderEventPayload {
	return OrderEventPayload{
		OrderID:     o.ID.String(),
		Number:      o.Number,
		StoreID:     o.StoreID.String(),
		CustomerID:  o.CustomerID.String(),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		TotalPaid:   o.TotalPaid.StringFixed(2),
	}
}

func returnEvent(r *SupplyReturn, o *SupplyOrder) ReturnEventPayload {
	return ReturnEventPayload{
		ReturnID:            r.ID.String(),
		Number:              r.Number,
		OrderID:             o.ID.String(),
		OrderNumber:         o.Number,
		StoreID:             o.StoreID.String(),
		CustomerID:          o.CustomerID.String(),
		TotalReturnedAmount: r.TotalReturnedAmount.StringFixed(2),
		Lines:               len(r.Items),
	}
}

func paymentEvent(p *SupplyPayment, o *SupplyOrder) PaymentEventPayload {
	return PaymentEventPayload{
		PaymentID:   p.ID.String(),
		Number:      p.Number,
		OrderID:     o.ID.String(),
		OrderNumber: o.Number,
		StoreID:     o.StoreID.String(),
		CustomerID:  o.CustomerID.String(),
		Method:      string(p.PaymentMethod),
		AmountPaid:  p.AmountPaid.StringFixed(2),
		Remaining:   o.Outstanding().StringFixed(2),
	}
}

// orderSnapshot is the audit representation of an order.
func orderSnapshot(o *SupplyOrder) map[string]any {
	totals := o.Totals()
	return map[string]any{
		"number":          o.Number,
		"store_id":        o.StoreID.String(),
		"customer_id":     o.CustomerID.String(),
		"cashier_id":      o.CashierID.String(),
		"status":          o.Status,
		"subtotal":        o.Subtotal.String(),
		"discount_rate":   o.DiscountRate.String(),
		"discount_amount": o.DiscountAmount.String(),
		"total_amount":    o.TotalAmount.String(),
		"total_paid":      o.TotalPaid.String(),
		"items":           len(o.Items),
		"quantities":      totals,
	}
}

func change(before, after any) map[string]any {
	return map[string]any{"old": before, "new": after}
}
