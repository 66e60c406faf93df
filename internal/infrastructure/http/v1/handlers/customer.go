package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/customers"
	"facturard/internal/infrastructure/http/v1/dto"
)

// CustomerService is what CustomerHandler needs from the customers domain.
type CustomerService interface {
	Create(ctx context.Context, c *customers.Customer) error
	Update(ctx context.Context, c *customers.Customer) error
	Get(ctx context.Context, customerID id.ID) (*customers.Customer, error)
	GetByTaxID(ctx context.Context, raw string) (*customers.Customer, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*customers.Customer], error)
	Delete(ctx context.Context, customerID id.ID) error
}

// CustomerHandler handles /customers.
type CustomerHandler struct {
	*BaseHandler
	service CustomerService
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service CustomerService) *CustomerHandler {
	return &CustomerHandler{BaseHandler: base, service: service}
}

// List handles GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MapList(result, dto.FromCustomer))
}

// Create handles POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer := req.ToCustomer()
	if err := h.service.Create(c.Request.Context(), customer); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromCustomer(customer))
}

// Get handles GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	customer, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(customer))
}

// Lookup handles GET /customers/by-tax-id/:taxId
func (h *CustomerHandler) Lookup(c *gin.Context) {
	customer, err := h.service.GetByTaxID(c.Request.Context(), c.Param("taxId"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(customer))
}

// Update handles PUT /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	customer := req.ToCustomer(customerID)
	if err := h.service.Update(c.Request.Context(), customer); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(customer))
}

// Delete handles DELETE /customers/:id
func (h *CustomerHandler) Delete(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), customerID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers customer routes on rg.
func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/by-tax-id/:taxId", h.Lookup)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
