package dto

import (
	"strings"

	"github.com/samber/lo"

	"facturard/internal/domain/reports"
)

// PeriodQuery selects a fiscal month as YYYYMM.
type PeriodQuery struct {
	Period string `form:"period" binding:"required,len=6,numeric"`
}

// ReportResponse is a 606/607 report in JSON form. Rows keep the TXT column order.
type ReportResponse struct {
	Format   string         `json:"format"`
	TaxID    string         `json:"taxId"`
	Period   string         `json:"period"`
	FileName string         `json:"fileName"`
	Rows     []string       `json:"rows"`
	Totals   reports.Totals `json:"totals"`
}

// FromReport renders each row pipe-delimited.
func FromReport(r *reports.Report) ReportResponse {
	return ReportResponse{
		Format:   string(r.Format),
		TaxID:    r.TaxID,
		Period:   r.Period,
		FileName: reports.FileName(r),
		Rows: lo.Map(r.Rows, func(row reports.Row, _ int) string {
			return strings.Join(row, "|")
		}),
		Totals: r.Totals,
	}
}
