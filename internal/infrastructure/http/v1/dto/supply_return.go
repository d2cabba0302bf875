package dto

import (
	"time"

	"supplyhub/internal/domain/documents/supply"
)

// SupplyReturnItemRequest is one returned line.
type SupplyReturnItemRequest struct {
	SupplyOrderItemID string `json:"supply_order_item_id" binding:"required,uuid"`
	QuantityReturned  int64  `json:"quantity_returned" binding:"required,gt=0"`
	ReturnReason      string `json:"return_reason" binding:"max=500"`
	Condition         string `json:"condition" binding:"omitempty,supply_condition"`
}

// CreateSupplyReturnRequest represents a request to record a return.
type CreateSupplyReturnRequest struct {
	SupplyOrderID string                    `json:"supply_order_id" binding:"required,uuid"`
	Notes         string                    `json:"notes" binding:"max=2000"`
	ReturnDate    *time.Time                `json:"return_date"`
	Items         []SupplyReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToInput converts the request. Condition defaults to good.
func (r *CreateSupplyReturnRequest) ToInput() supply.CreateReturnInput {
	in := supply.CreateReturnInput{
		SupplyOrderID: parseID(r.SupplyOrderID),
		Notes:         r.Notes,
		ReturnDate:    utc(r.ReturnDate),
		Items:         make([]supply.ReturnItemInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		condition := supply.ItemCondition(item.Condition)
		if condition == "" {
			condition = supply.ConditionGood
		}
		in.Items = append(in.Items, supply.ReturnItemInput{
			SupplyOrderItemID: parseID(item.SupplyOrderItemID),
			QuantityReturned:  item.QuantityReturned,
			ReturnReason:      item.ReturnReason,
			Condition:         condition,
		})
	}
	return in
}

// SupplyReturnListRequest holds list query parameters.
type SupplyReturnListRequest struct {
	PaginationRequest
	StoreID       string `form:"store_id" binding:"omitempty,uuid"`
	SupplyOrderID string `form:"supply_order_id" binding:"omitempty,uuid"`
	Status        string `form:"status"`
}

// ToFilter converts the request.
func (r *SupplyReturnListRequest) ToFilter() supply.ReturnListFilter {
	f := supply.ReturnListFilter{
		ListFilter:    r.ListFilter(),
		StoreID:       parseOptionalID(r.StoreID),
		SupplyOrderID: parseOptionalID(r.SupplyOrderID),
	}
	if r.Status != "" {
		status := supply.ReturnStatus(r.Status)
		f.Status = &status
	}
	return f
}

// SupplyReturnItemResponse represents a returned line.
type SupplyReturnItemResponse struct {
	ID                string `json:"id"`
	SupplyOrderItemID string `json:"supply_order_item_id"`
	QuantityReturned  int64  `json:"quantity_returned"`
	UnitPrice         string `json:"unit_price"`
	Amount            string `json:"amount"`
	ReturnReason      string `json:"return_reason,omitempty"`
	Condition         string `json:"condition"`
}

// SupplyReturnResponse represents a return.
type SupplyReturnResponse struct {
	ID                  string                     `json:"id"`
	Number              string                     `json:"number"`
	SupplyOrderID       string                     `json:"supply_order_id"`
	StoreID             string                     `json:"store_id"`
	Status              string                     `json:"status"`
	TotalReturnedAmount string                     `json:"total_returned_amount"`
	Notes               string                     `json:"notes"`
	ReturnDate          time.Time                  `json:"return_date"`
	CreatedAt           time.Time                  `json:"created_at"`
	Items               []SupplyReturnItemResponse `json:"items"`
}

// FromSupplyReturn creates a response from the domain return.
func FromSupplyReturn(r *supply.SupplyReturn) SupplyReturnResponse {
	resp := SupplyReturnResponse{
		ID:                  r.ID.String(),
		Number:              r.Number,
		SupplyOrderID:       r.SupplyOrderID.String(),
		StoreID:             r.StoreID.String(),
		Status:              string(r.Status),
		TotalReturnedAmount: money(r.TotalReturnedAmount),
		Notes:               r.Notes,
		ReturnDate:          r.ReturnDate,
		CreatedAt:           r.CreatedAt,
		Items:               make([]SupplyReturnItemResponse, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		resp.Items = append(resp.Items, SupplyReturnItemResponse{
			ID:                item.ID.String(),
			SupplyOrderItemID: item.SupplyOrderItemID.String(),
			QuantityReturned:  item.QuantityReturned,
			UnitPrice:         money(item.UnitPrice),
			Amount:            money(item.Amount),
			ReturnReason:      item.ReturnReason,
			Condition:         string(item.Condition),
		})
	}
	return resp
}

// FromSupplyReturns converts a slice.
func FromSupplyReturns(returns []*supply.SupplyReturn) []SupplyReturnResponse {
	out := make([]SupplyReturnResponse, 0, len(returns))
	for _, r := range returns {
		out = append(out, FromSupplyReturn(r))
	}
	return out
}
