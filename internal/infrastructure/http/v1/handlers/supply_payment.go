package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/http/v1/dto"
)

// PaymentService records and reads supply payments.
type PaymentService interface {
	CreatePayment(ctx context.Context, in supply.CreatePaymentInput) (*supply.SupplyPayment, *supply.SupplyOrder, error)
	Get(ctx context.Context, paymentID id.ID) (*supply.SupplyPayment, error)
	List(ctx context.Context, filter supply.PaymentListFilter) (domain.ListResult[*supply.SupplyPayment], error)
}

// SupplyPaymentHandler handles /supply-payments.
type SupplyPaymentHandler struct {
	*BaseHandler
	payments PaymentService
}

// NewSupplyPaymentHandler creates a new supply payment handler.
func NewSupplyPaymentHandler(base *BaseHandler, payments PaymentService) *SupplyPaymentHandler {
	return &SupplyPaymentHandler{BaseHandler: base, payments: payments}
}

// List handles GET /supply-payments.
func (h *SupplyPaymentHandler) List(c *gin.Context) {
	var req dto.SupplyPaymentListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.payments.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"supply_payments": dto.FromSupplyPayments(result.Items),
		"pagination":      dto.NewPagination(result),
	})
}

// Create handles POST /supply-payments. The updated order is returned
// alongside the payment so clients see completion immediately.
func (h *SupplyPaymentHandler) Create(c *gin.Context) {
	var req dto.CreateSupplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, order, err := h.payments.CreatePayment(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, gin.H{
		"supply_payment": dto.FromSupplyPayment(payment),
		"supply_order":   dto.FromSupplyOrder(order),
	})
}

// Get handles GET /supply-payments/:id.
func (h *SupplyPaymentHandler) Get(c *gin.Context) {
	paymentID, ok := h.ParseID(c)
	if !ok {
		return
	}

	payment, err := h.payments.Get(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"supply_payment": dto.FromSupplyPayment(payment)})
}

// RegisterRoutes registers supply payment routes.
func (h *SupplyPaymentHandler) RegisterRoutes(rg *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", chain(mutate, h.Create)...)
	rg.GET("/:id", h.Get)
}
