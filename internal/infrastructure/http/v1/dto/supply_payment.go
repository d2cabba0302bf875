package dto

import (
	"time"

	"supplyhub/internal/core/types"
	"supplyhub/internal/domain/documents/supply"
)

// CreateSupplyPaymentRequest represents a request to record a payment.
type CreateSupplyPaymentRequest struct {
	SupplyOrderID string      `json:"supply_order_id" binding:"required,uuid"`
	AmountPaid    types.Money `json:"amount_paid"`
	PaymentMethod string      `json:"payment_method" binding:"required,payment_method"`
	PaymentDate   *time.Time  `json:"payment_date"`
	Notes         string      `json:"notes" binding:"max=2000"`
}

// ToInput converts the request. Amount checks happen in the processor.
func (r *CreateSupplyPaymentRequest) ToInput() supply.CreatePaymentInput {
	return supply.CreatePaymentInput{
		SupplyOrderID: parseID(r.SupplyOrderID),
		AmountPaid:    r.AmountPaid,
		PaymentMethod: supply.PaymentMethod(r.PaymentMethod),
		PaymentDate:   utc(r.PaymentDate),
		Notes:         r.Notes,
	}
}

// SupplyPaymentListRequest holds list query parameters.
type SupplyPaymentListRequest struct {
	PaginationRequest
	StoreID       string `form:"store_id" binding:"omitempty,uuid"`
	SupplyOrderID string `form:"supply_order_id" binding:"omitempty,uuid"`
}

// ToFilter converts the request.
func (r *SupplyPaymentListRequest) ToFilter() supply.PaymentListFilter {
	return supply.PaymentListFilter{
		ListFilter:    r.ListFilter(),
		StoreID:       parseOptionalID(r.StoreID),
		SupplyOrderID: parseOptionalID(r.SupplyOrderID),
	}
}

// SupplyPaymentResponse represents a payment.
type SupplyPaymentResponse struct {
	ID            string    `json:"id"`
	Number        string    `json:"number"`
	SupplyOrderID string    `json:"supply_order_id"`
	StoreID       string    `json:"store_id"`
	PaymentMethod string    `json:"payment_method"`
	AmountPaid    string    `json:"amount_paid"`
	PaymentDate   time.Time `json:"payment_date"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

// FromSupplyPayment creates a response from the domain payment.
func FromSupplyPayment(p *supply.SupplyPayment) SupplyPaymentResponse {
	return SupplyPaymentResponse{
		ID:            p.ID.String(),
		Number:        p.Number,
		SupplyOrderID: p.SupplyOrderID.String(),
		StoreID:       p.StoreID.String(),
		PaymentMethod: string(p.PaymentMethod),
		AmountPaid:    money(p.AmountPaid),
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
	}
}

// FromSupplyPayments converts a slice.
func FromSupplyPayments(payments []*supply.SupplyPayment) []SupplyPaymentResponse {
	out := make([]SupplyPaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, FromSupplyPayment(p))
	}
	return out
}
