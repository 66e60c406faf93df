package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"facturard/internal/core/id"
	"facturard/internal/domain/batches"
	"facturard/internal/infrastructure/http/v1/dto"
)

// BatchService is what BatchHandler needs from the batches domain.
type BatchService interface {
	Create(ctx context.Context, req batches.CreateRequest) (*batches.Batch, error)
	Get(ctx context.Context, batchID id.ID) (*batches.Batch, error)
	List(ctx context.Context, filter batches.Filter) ([]*batches.Batch, error)
	Deactivate(ctx context.Context, batchID id.ID) (*batches.Batch, error)
}

// BatchHandler handles numbering batch configuration.
type BatchHandler struct {
	*BaseHandler
	service BatchService
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, service BatchService) *BatchHandler {
	return &BatchHandler{BaseHandler: base, service: service}
}

// List handles GET /batches
func (h *BatchHandler) List(c *gin.Context) {
	var q dto.BatchQuery
	if !h.BindQuery(c, &q) {
		return
	}

	items, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[dto.BatchResponse]{
		Items: lo.Map(items, func(b *batches.Batch, _ int) dto.BatchResponse { return dto.FromBatch(b) }),
	})
}

// Create handles POST /batches. Replaces the active batch of the same type and series.
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Create(c.Request.Context(), req.ToCreateRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromBatch(b))
}

// Get handles GET /batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(b))
}

// Deactivate handles POST /batches/:id/deactivate
func (h *BatchHandler) Deactivate(c *gin.Context) {
	batchID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	b, err := h.service.Deactivate(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(b))
}

// RegisterRoutes registers batch routes on rg.
func (h *BatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/deactivate", h.Deactivate)
}
