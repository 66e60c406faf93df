package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/purchase"
	"facturard/internal/infrastructure/http/v1/dto"
)

// PurchaseService is what PurchaseHandler needs from the purchase domain.
type PurchaseService interface {
	Create(ctx context.Context, req purchase.CreateRequest) (*purchase.Purchase, error)
	Get(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*purchase.Purchase], error)
	Delete(ctx context.Context, purchaseID id.ID) error
}

// PurchaseHandler handles supplier purchase records.
type PurchaseHandler struct {
	*BaseHandler
	service PurchaseService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, service PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchases
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), req.ToDomain(h.Now()))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPurchase(p))
}

// Get handles GET /purchases/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPurchase(p))
}

// List handles GET /purchases
func (h *PurchaseHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MapList(result, dto.FromPurchase))
}

// Delete handles DELETE /purchases/:id
func (h *PurchaseHandler) Delete(c *gin.Context) {
	purchaseID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), purchaseID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers purchase routes on rg.
func (h *PurchaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.DELETE("/:id", h.Delete)
}
