package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/infrastructure/http/v1/dto"
)

// DocumentService is what DocumentHandler needs from the invoice domain.
type DocumentService interface {
	IssueInvoice(ctx context.Context, req invoice.IssueInvoiceRequest) (*invoice.Document, error)
	IssueCreditNote(ctx context.Context, req invoice.IssueCreditNoteRequest) (*invoice.Document, error)
	MarkPaid(ctx context.Context, docID id.ID) (*invoice.Document, error)
	Cancel(ctx context.Context, docID id.ID) (*invoice.Document, error)
	Get(ctx context.Context, docID id.ID) (*invoice.Document, error)
	GetBySequence(ctx context.Context, sequenceIdentifier string) (*invoice.Document, error)
	List(ctx context.Context, base domain.ListFilter, filter invoice.ListFilter) (domain.ListResult[*invoice.Document], error)
}

// DocumentHandler handles invoices and credit notes.
type DocumentHandler struct {
	*BaseHandler
	service DocumentService
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(base *BaseHandler, service DocumentService) *DocumentHandler {
	return &DocumentHandler{BaseHandler: base, service: service}
}

// Issue handles POST /documents
func (h *DocumentHandler) Issue(c *gin.Context) {
	var req dto.IssueInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.IssueInvoice(c.Request.Context(), req.ToDomain(h.Now()))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromDocument(doc))
}

// CreditNote handles POST /documents/:id/credit-note
func (h *DocumentHandler) CreditNote(c *gin.Context) {
	originalID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.IssueCreditNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.service.IssueCreditNote(c.Request.Context(), req.ToDomain(originalID, h.Now()))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromDocument(note))
}

// Pay handles POST /documents/:id/pay
func (h *DocumentHandler) Pay(c *gin.Context) {
	h.changeStatus(c, h.service.MarkPaid)
}

// Cancel handles POST /documents/:id/cancel
func (h *DocumentHandler) Cancel(c *gin.Context) {
	h.changeStatus(c, h.service.Cancel)
}

func (h *DocumentHandler) changeStatus(c *gin.Context, fn func(context.Context, id.ID) (*invoice.Document, error)) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := fn(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	doc, err := h.service.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// GetBySequence handles GET /documents/by-ncf/:ncf
func (h *DocumentHandler) GetBySequence(c *gin.Context) {
	doc, err := h.service.GetBySequence(c.Request.Context(), c.Param("ncf"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// List handles GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	var q dto.DocumentQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ListQuery.ToFilter(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.MapList(result, dto.FromDocument))
}

// RegisterRoutes registers document routes on rg.
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Issue)
	rg.GET("/by-ncf/:ncf", h.GetBySequence)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/credit-note", h.CreditNote)
	rg.POST("/:id/pay", h.Pay)
	rg.POST("/:id/cancel", h.Cancel)
}
