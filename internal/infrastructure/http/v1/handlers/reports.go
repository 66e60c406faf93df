package handlers

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"facturard/internal/domain/reports"
	"facturard/internal/infrastructure/http/v1/dto"
)

// ReportService is what ReportsHandler needs from the reports domain.
type ReportService interface {
	Build606(ctx context.Context, period reports.Period) (*reports.Report, error)
	Build607(ctx context.Context, period reports.Period) (*reports.Report, error)
	Summary(ctx context.Context, period reports.Period) ([]reports.DocumentTypeSummary, error)
}

// ReportsHandler handles DGII report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Get606 handles GET /reports/606?period=YYYYMM
func (h *ReportsHandler) Get606(c *gin.Context) {
	h.report(c, h.service.Build606)
}

// Get607 handles GET /reports/607?period=YYYYMM
func (h *ReportsHandler) Get607(c *gin.Context) {
	h.report(c, h.service.Build607)
}

// Download606 handles GET /reports/606/txt?period=YYYYMM
func (h *ReportsHandler) Download606(c *gin.Context) {
	h.download(c, h.service.Build606)
}

// Download607 handles GET /reports/607/txt?period=YYYYMM
func (h *ReportsHandler) Download607(c *gin.Context) {
	h.download(c, h.service.Build607)
}

// Summary handles GET /reports/summary?period=YYYYMM
func (h *ReportsHandler) Summary(c *gin.Context) {
	period, ok := h.period(c)
	if !ok {
		return
	}

	rows, err := h.service.Summary(c.Request.Context(), period)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ItemsResponse[reports.DocumentTypeSummary]{Items: rows})
}

type buildFunc func(context.Context, reports.Period) (*reports.Report, error)

func (h *ReportsHandler) report(c *gin.Context, build buildFunc) {
	period, ok := h.period(c)
	if !ok {
		return
	}

	r, err := build(c.Request.Context(), period)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromReport(r))
}

func (h *ReportsHandler) download(c *gin.Context, build buildFunc) {
	period, ok := h.period(c)
	if !ok {
		return
	}

	r, err := build(c.Request.Context(), period)
	if err != nil {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := reports.WriteTXT(&buf, r); err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+reports.FileName(r)+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

func (h *ReportsHandler) period(c *gin.Context) (reports.Period, bool) {
	var q dto.PeriodQuery
	if !h.BindQuery(c, &q) {
		return reports.Period{}, false
	}
	period, err := reports.ParsePeriod(q.Period)
	if err != nil {
		h.Error(c, err)
		return reports.Period{}, false
	}
	return period, true
}

// RegisterRoutes registers report routes on rg.
func (h *ReportsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/606", h.Get606)
	rg.GET("/606/txt", h.Download606)
	rg.GET("/607", h.Get607)
	rg.GET("/607/txt", h.Download607)
	rg.GET("/summary", h.Summary)
}
