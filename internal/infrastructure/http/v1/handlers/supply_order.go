package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/http/v1/dto"
	"supplyhub/internal/infrastructure/storage/postgres"
)

const historyLimit = 100

// OrderService is the order lifecycle used by SupplyOrderHandler.
type OrderService interface {
	Create(ctx context.Context, in supply.CreateOrderInput) (*supply.SupplyOrder, error)
	Get(ctx context.Context, orderID id.ID) (*supply.SupplyOrder, error)
	GetDetails(ctx context.Context, orderID id.ID) (*supply.OrderDetails, error)
	List(ctx context.Context, filter supply.OrderListFilter) (domain.ListResult[*supply.OrderSummary], error)
	Update(ctx context.Context, orderID id.ID, in supply.UpdateOrderInput) (*supply.SupplyOrder, error)
	Delete(ctx context.Context, orderID id.ID) error
	Cancel(ctx context.Context, orderID id.ID) (*supply.SupplyOrder, error)
}

// AuditHistory reads decompressed audit entries.
type AuditHistory interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// SupplyOrderHandler handles /supply-orders.
type SupplyOrderHandler struct {
	*BaseHandler
	orders  OrderService
	history AuditHistory
}

// NewSupplyOrderHandler creates a new supply order handler.
func NewSupplyOrderHandler(base *BaseHandler, orders OrderService, history AuditHistory) *SupplyOrderHandler {
	return &SupplyOrderHandler{BaseHandler: base, orders: orders, history: history}
}

// List handles GET /supply-orders.
func (h *SupplyOrderHandler) List(c *gin.Context) {
	var req dto.SupplyOrderListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.orders.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"supply_orders": dto.FromOrderSummaries(result.Items),
		"pagination":    dto.NewPagination(result),
	})
}

// Create handles POST /supply-orders.
func (h *SupplyOrderHandler) Create(c *gin.Context) {
	var req dto.CreateSupplyOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.Create(c.Request.Context(), req.ToInput(h.GetUserID(c)))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, gin.H{"supply_order": dto.FromSupplyOrder(order)})
}

// Get handles GET /supply-orders/:id with returns and payments expanded.
func (h *SupplyOrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	details, err := h.orders.GetDetails(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"supply_order": dto.FromOrderDetails(details)})
}

// Update handles PUT /supply-orders/:id.
func (h *SupplyOrderHandler) Update(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	var req dto.UpdateSupplyOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.Update(c.Request.Context(), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"supply_order": dto.FromSupplyOrder(order)})
}

// Delete handles DELETE /supply-orders/:id.
func (h *SupplyOrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.orders.Delete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"message": "supply order deleted"})
}

// Cancel handles POST /supply-orders/:id/cancel.
func (h *SupplyOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"supply_order": dto.FromSupplyOrder(order)})
}

// History handles GET /supply-orders/:id/history.
// Returns and payments are audited against their order, so they show up here.
func (h *SupplyOrderHandler) History(c *gin.Context) {
	orderID, ok := h.ParseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Resolves NOT_FOUND and store scope before reading the audit log.
	if _, err := h.orders.Get(ctx, orderID); err != nil {
		h.Error(c, err)
		return
	}

	entries, err := h.history.GetEntityHistory(ctx, supply.AggregateOrder, orderID, historyLimit)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.AuditEntryResponse{
			ID:        e.ID.String(),
			Action:    string(e.Action),
			UserID:    e.UserID,
			RequestID: e.RequestID,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		})
	}
	h.OK(c, gin.H{"history": out})
}

// RegisterRoutes registers supply order routes.
func (h *SupplyOrderHandler) RegisterRoutes(rg *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", chain(mutate, h.Create)...)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", chain(mutate, h.Update)...)
	rg.DELETE("/:id", chain(mutate, h.Delete)...)
	rg.POST("/:id/cancel", chain(mutate, h.Cancel)...)
	rg.GET("/:id/history", h.History)
}
