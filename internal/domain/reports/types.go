package reports

import (
	"fmt"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/numerator"
	"facturard/internal/core/types"
)

// Format identifies a DGII report layout.
type Format string

const (
	Format606 Format = "606"
	Format607 Format = "607"
)

// Period is a calendar month. Reports cover [Start, End).
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod reads a YYYYMM period.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("200601", s)
	if err != nil {
		return Period{}, apperror.NewValidation("period must be YYYYMM").WithDetail("value", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// String renders YYYYMM.
func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// Start is the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the next period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Report is a rendered-ready DGII report: a header plus one row per document.
type Report struct {
	Format Format `json:"format"`
	TaxID  string `json:"taxId"`
	Period string `json:"period"`
	Rows   []Row  `json:"rows"`
	Totals Totals `json:"totals"`
}

// Row holds the pipe-separated fields of one report line, in layout order.
type Row []string

// Totals summarizes a report. Count includes every row; amounts leave out
// cancelled documents.
type Totals struct {
	Count  int         `json:"count"`
	Amount types.Money `json:"amount"`
	ITBIS  types.Money `json:"itbis"`
}

// DocumentTypeSummary aggregates issued documents of one type.
type DocumentTypeSummary struct {
	DocumentType   numerator.DocumentType `db:"document_type" json:"documentType"`
	Description    string                 `db:"-" json:"description"`
	Count          int                    `db:"count" json:"count"`
	CancelledCount int                    `db:"cancelled_count" json:"cancelledCount"`
	Subtotal       types.Money            `db:"subtotal" json:"subtotal"`
	TaxTotal       types.Money            `db:"tax_total" json:"taxTotal"`
	Total          types.Money            `db:"total" json:"total"`
}
