package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"facturard/internal/domain/subscription"
	"facturard/internal/infrastructure/http/v1/dto"
)

// SubscriptionService is what SubscriptionHandler needs from the subscription domain.
type SubscriptionService interface {
	ListPlans(ctx context.Context) ([]*subscription.Plan, error)
	Get(ctx context.Context) (*subscription.Overview, error)
	Activate(ctx context.Context, planCode, externalRef string) (*subscription.Subscription, error)
	Cancel(ctx context.Context) (*subscription.Subscription, error)
}

// SubscriptionHandler handles plan and subscription endpoints.
type SubscriptionHandler struct {
	*BaseHandler
	service SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(base *BaseHandler, service SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{BaseHandler: base, service: service}
}

// Plans handles GET /plans. Public.
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ItemsResponse[dto.PlanResponse]{Items: dto.FromPlans(plans)})
}

// Get handles GET /subscription
func (h *SubscriptionHandler) Get(c *gin.Context) {
	overview, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOverview(overview))
}

// Activate handles POST /subscription/activate
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	var req dto.ActivateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.service.Activate(c.Request.Context(), req.PlanCode, req.ExternalRef)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSubscription(sub))
}

// Cancel handles POST /subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	sub, err := h.service.Cancel(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSubscription(sub))
}

// RegisterRoutes registers subscription routes on rg.
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.POST("/activate", h.Activate)
	rg.POST("/cancel", h.Cancel)
}
