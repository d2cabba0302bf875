package dto

import (
	"time"

	"supplyhub/internal/core/types"
	"supplyhub/internal/domain/documents/supply"
)

// --- Request DTOs ---

// SupplyOrderItemRequest is one line of a create/update request.
// Omitting unit_price takes the catalog price of the product.
type SupplyOrderItemRequest struct {
	ProductID        string       `json:"product_id" binding:"required,uuid"`
	QuantitySupplied int64        `json:"quantity_supplied" binding:"required,gt=0"`
	UnitPrice        *types.Money `json:"unit_price"`
}

// CreateSupplyOrderRequest represents a request to create a supply order.
type CreateSupplyOrderRequest struct {
	StoreID    string `json:"store_id" binding:"required,uuid"`
	CustomerID string `json:"customer_id" binding:"required,uuid"`
	// CashierID defaults to the authenticated user.
	CashierID          string                   `json:"cashier_id" binding:"omitempty,uuid"`
	Notes              string                   `json:"notes" binding:"max=2000"`
	SupplyDate         *time.Time               `json:"supply_date"`
	ExpectedReturnDate *time.Time               `json:"expected_return_date"`
	Items              []SupplyOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func itemInputs(items []SupplyOrderItemRequest) []supply.OrderItemInput {
	out := make([]supply.OrderItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, supply.OrderItemInput{
			ProductID:        parseID(item.ProductID),
			QuantitySupplied: item.QuantitySupplied,
			UnitPrice:        item.UnitPrice,
		})
	}
	return out
}

// ToInput converts the request. userID fills a missing cashier.
func (r *CreateSupplyOrderRequest) ToInput(userID string) supply.CreateOrderInput {
	cashier := r.CashierID
	if cashier == "" {
		cashier = userID
	}
	return supply.CreateOrderInput{
		StoreID:            parseID(r.StoreID),
		CustomerID:         parseID(r.CustomerID),
		CashierID:          parseID(cashier),
		Notes:              r.Notes,
		SupplyDate:         utc(r.SupplyDate),
		ExpectedReturnDate: utc(r.ExpectedReturnDate),
		Items:              itemInputs(r.Items),
	}
}

// UpdateSupplyOrderRequest carries the editable fields. Anything else is ignored.
type UpdateSupplyOrderRequest struct {
	Version            *int                     `json:"version" binding:"omitempty,min=1"`
	CustomerID         *string                  `json:"customer_id" binding:"omitempty,uuid"`
	Notes              *string                  `json:"notes" binding:"omitempty,max=2000"`
	SupplyDate         *time.Time               `json:"supply_date"`
	ExpectedReturnDate *time.Time               `json:"expected_return_date"`
	Items              []SupplyOrderItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// ToInput converts the request.
func (r *UpdateSupplyOrderRequest) ToInput() supply.UpdateOrderInput {
	in := supply.UpdateOrderInput{
		Version:            r.Version,
		Notes:              r.Notes,
		SupplyDate:         utc(r.SupplyDate),
		ExpectedReturnDate: utc(r.ExpectedReturnDate),
	}
	if r.CustomerID != nil {
		customerID := parseID(*r.CustomerID)
		in.CustomerID = &customerID
	}
	if len(r.Items) > 0 {
		in.Items = itemInputs(r.Items)
	}
	return in
}

// SupplyOrderListRequest holds list query parameters.
type SupplyOrderListRequest struct {
	PaginationRequest
	StoreID    string `form:"store_id" binding:"omitempty,uuid"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status"`
}

// ToFilter converts the request.
func (r *SupplyOrderListRequest) ToFilter() supply.OrderListFilter {
	f := supply.OrderListFilter{
		ListFilter: r.ListFilter(),
		StoreID:    parseOptionalID(r.StoreID),
		CustomerID: parseOptionalID(r.CustomerID),
	}
	if r.Status != "" {
		status := supply.OrderStatus(r.Status)
		f.Status = &status
	}
	return f
}

// --- Response DTOs ---

// SupplyOrderItemResponse represents an order line.
type SupplyOrderItemResponse struct {
	ID               string `json:"id"`
	LineNo           int    `json:"line_no"`
	ProductID        string `json:"product_id"`
	QuantitySupplied int64  `json:"quantity_supplied"`
	QuantityReturned int64  `json:"quantity_returned"`
	QuantityAccepted int64  `json:"quantity_accepted"`
	QuantityPending  int64  `json:"quantity_pending"`
	UnitPrice        string `json:"unit_price"`
	TotalPrice       string `json:"total_price"`
}

// SupplyOrderResponse represents a supply order.
type SupplyOrderResponse struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	StoreID            string     `json:"store_id"`
	CustomerID         string     `json:"customer_id"`
	CashierID          string     `json:"cashier_id"`
	Status             string     `json:"status"`
	Subtotal           string     `json:"subtotal"`
	DiscountRate       string     `json:"discount_rate"`
	DiscountAmount     string     `json:"discount_amount"`
	TaxAmount          string     `json:"tax_amount"`
	TotalAmount        string     `json:"total_amount"`
	TotalPaid          string     `json:"total_paid"`
	RemainingAmount    string     `json:"remaining_amount"`
	Notes              string     `json:"notes"`
	SupplyDate         time.Time  `json:"supply_date"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	Items    []SupplyOrderItemResponse `json:"items,omitempty"`
	Returns  []SupplyReturnResponse    `json:"returns,omitempty"`
	Payments []SupplyPaymentResponse   `json:"payments,omitempty"`
}

// SupplyOrderSummaryResponse is a list row with aggregated quantities.
type SupplyOrderSummaryResponse struct {
	SupplyOrderResponse
	TotalQuantitySupplied int64 `json:"total_quantity_supplied"`
	TotalQuantityReturned int64 `json:"total_quantity_returned"`
	TotalQuantityAccepted int64 `json:"total_quantity_accepted"`
}

// FromSupplyOrder creates a response from the domain order.
func FromSupplyOrder(o *supply.SupplyOrder) SupplyOrderResponse {
	resp := SupplyOrderResponse{
		ID:                 o.ID.String(),
		Number:             o.Number,
		StoreID:            o.StoreID.String(),
		CustomerID:         o.CustomerID.String(),
		CashierID:          o.CashierID.String(),
		Status:             string(o.Status),
		Subtotal:           money(o.Subtotal),
		DiscountRate:       money(o.DiscountRate),
		DiscountAmount:     money(o.DiscountAmount),
		TaxAmount:          money(o.TaxAmount),
		TotalAmount:        money(o.TotalAmount),
		TotalPaid:          money(o.TotalPaid),
		RemainingAmount:    money(o.Outstanding()),
		Notes:              o.Notes,
		SupplyDate:         o.SupplyDate,
		ExpectedReturnDate: o.ExpectedReturnDate,
		CancelledAt:        o.CancelledAt,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if len(o.Items) > 0 {
		resp.Items = make([]SupplyOrderItemResponse, 0, len(o.Items))
		for _, item := range o.Items {
			resp.Items = append(resp.Items, SupplyOrderItemResponse{
				ID:               item.ID.String(),
				LineNo:           item.LineNo,
				ProductID:        item.ProductID.String(),
				QuantitySupplied: item.QuantitySupplied,
				QuantityReturned: item.QuantityReturned,
				QuantityAccepted: item.QuantityAccepted,
				QuantityPending:  item.Pending(),
				UnitPrice:        money(item.UnitPrice),
				TotalPrice:       money(item.TotalPrice),
			})
		}
	}
	return resp
}

// FromOrderDetails expands returns and payments.
func FromOrderDetails(d *supply.OrderDetails) SupplyOrderResponse {
	resp := FromSupplyOrder(d.Order)
	resp.Returns = FromSupplyReturns(d.Returns)
	resp.Payments = FromSupplyPayments(d.Payments)
	return resp
}

// FromOrderSummaries converts list rows.
func FromOrderSummaries(rows []*supply.OrderSummary) []SupplyOrderSummaryResponse {
	out := make([]SupplyOrderSummaryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, SupplyOrderSummaryResponse{
			SupplyOrderResponse:   FromSupplyOrder(&row.SupplyOrder),
			TotalQuantitySupplied: row.Supplied,
			TotalQuantityReturned: row.Returned,
			TotalQuantityAccepted: row.Accepted,
		})
	}
	return out
}

// AuditEntryResponse is one history record of an order.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id"`
	RequestID string    `json:"request_id,omitempty"`
	Changes   any       `json:"changes"`
	CreatedAt time.Time `json:"created_at"`
}
