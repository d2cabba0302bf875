package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/internal/domain/documents/supply"
	"supplyhub/internal/infrastructure/http/v1/dto"
)

// ReturnService records and reads supply returns.
type ReturnService interface {
	CreateReturn(ctx context.Context, in supply.CreateReturnInput) (*supply.SupplyReturn, error)
	Get(ctx context.Context, returnID id.ID) (*supply.SupplyReturn, error)
	List(ctx context.Context, filter supply.ReturnListFilter) (domain.ListResult[*supply.SupplyReturn], error)
}

// SupplyReturnHandler handles /supply-returns.
type SupplyReturnHandler struct {
	*BaseHandler
	returns ReturnService
}

// NewSupplyReturnHandler creates a new supply return handler.
func NewSupplyReturnHandler(base *BaseHandler, returns ReturnService) *SupplyReturnHandler {
	return &SupplyReturnHandler{BaseHandler: base, returns: returns}
}

// List handles GET /supply-returns.
func (h *SupplyReturnHandler) List(c *gin.Context) {
	var req dto.SupplyReturnListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.returns.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"supply_returns": dto.FromSupplyReturns(result.Items),
		"pagination":     dto.NewPagination(result),
	})
}

// Create handles POST /supply-returns.
func (h *SupplyReturnHandler) Create(c *gin.Context) {
	var req dto.CreateSupplyReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ret, err := h.returns.CreateReturn(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, gin.H{"supply_return": dto.FromSupplyReturn(ret)})
}

// Get handles GET /supply-returns/:id.
func (h *SupplyReturnHandler) Get(c *gin.Context) {
	returnID, ok := h.ParseID(c)
	if !ok {
		return
	}

	ret, err := h.returns.Get(c.Request.Context(), returnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"supply_return": dto.FromSupplyReturn(ret)})
}

// RegisterRoutes registers supply return routes.
func (h *SupplyReturnHandler) RegisterRoutes(rg *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", chain(mutate, h.Create)...)
	rg.GET("/:id", h.Get)
}
