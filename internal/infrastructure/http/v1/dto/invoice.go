package dto

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/domain/documents/invoice"
)

// LineRequest is one document line. Amounts accept JSON numbers or strings.
type LineRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

func toLineInputs(lines []LineRequest) []invoice.LineInput {
	return lo.Map(lines, func(l LineRequest, _ int) invoice.LineInput {
		return invoice.LineInput{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
		}
	})
}

// IssueInvoiceRequest issues an invoice and assigns its NCF.
type IssueInvoiceRequest struct {
	DocumentType  string        `json:"documentType" binding:"required,len=2,numeric"`
	CustomerTaxID string        `json:"customerTaxId" binding:"omitempty,taxid"`
	CustomerName  string        `json:"customerName" binding:"max=250"`
	Date          *Date         `json:"date"`
	DueDate       *Date         `json:"dueDate"`
	Currency      string        `json:"currency" binding:"omitempty,len=3"`
	Comment       string        `json:"comment" binding:"max=1000"`
	Lines         []LineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToDomain converts to the domain request. A missing date means today.
func (r *IssueInvoiceRequest) ToDomain(now time.Time) invoice.IssueInvoiceRequest {
	date := now
	if d := r.Date.Ptr(); d != nil {
		date = *d
	}
	return invoice.IssueInvoiceRequest{
		DocumentType:  numerator.DocumentType(r.DocumentType),
		CustomerTaxID: r.CustomerTaxID,
		CustomerName:  r.CustomerName,
		Date:          date,
		DueDate:       r.DueDate.Ptr(),
		Currency:      strings.ToUpper(r.Currency),
		Comment:       r.Comment,
		Lines:         toLineInputs(r.Lines),
	}
}

// IssueCreditNoteRequest annuls or partially reverses an invoice.
// No lines means a full reversal.
type IssueCreditNoteRequest struct {
	Reason string        `json:"reason" binding:"required,max=500"`
	Date   *Date         `json:"date"`
	Lines  []LineRequest `json:"lines" binding:"omitempty,dive"`
}

// ToDomain converts to the domain request for originalID.
func (r *IssueCreditNoteRequest) ToDomain(originalID id.ID, now time.Time) invoice.IssueCreditNoteRequest {
	date := now
	if d := r.Date.Ptr(); d != nil {
		date = *d
	}
	return invoice.IssueCreditNoteRequest{
		OriginalID: originalID,
		Reason:     r.Reason,
		Date:       date,
		Lines:      toLineInputs(r.Lines),
	}
}

// DocumentQuery adds document-specific filters to ListQuery.
type DocumentQuery struct {
	ListQuery
	Kind       string `form:"kind" binding:"omitempty,oneof=invoice credit_note"`
	CustomerID string `form:"customerId" binding:"omitempty,uuid"`
}

// ToFilter converts to the invoice list filter.
func (q DocumentQuery) ToFilter() invoice.ListFilter {
	f := invoice.ListFilter{Kind: invoice.Kind(q.Kind)}
	if q.CustomerID != "" {
		if cid, err := id.Parse(q.CustomerID); err == nil {
			f.CustomerID = &cid
		}
	}
	return f
}

// LineResponse is a document line in responses.
type LineResponse struct {
	LineNo      int             `json:"lineNo"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	Amount      decimal.Decimal `json:"amount"`
}

// DocumentResponse is an invoice or credit note.
type DocumentResponse struct {
	ID                 string          `json:"id"`
	Kind               string          `json:"kind"`
	SequenceIdentifier string          `json:"sequenceIdentifier"`
	DocumentType       string          `json:"documentType"`
	Description        string          `json:"description"`
	SeriesPrefix       string          `json:"seriesPrefix"`
	Date               Date            `json:"date"`
	DueDate            *Date           `json:"dueDate,omitempty"`
	CustomerID         *string         `json:"customerId,omitempty"`
	CustomerTaxID      string          `json:"customerTaxId,omitempty"`
	CustomerName       string          `json:"customerName,omitempty"`
	Currency           string          `json:"currency"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxTotal           decimal.Decimal `json:"taxTotal"`
	Total              decimal.Decimal `json:"total"`
	Status             string          `json:"status"`
	RelatedDocument    string          `json:"relatedDocument,omitempty"`
	ModificationReason string          `json:"modificationReason,omitempty"`
	Comment            string          `json:"comment,omitempty"`
	PaidAt             *time.Time      `json:"paidAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	Lines              []LineResponse  `json:"lines,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// FromDocument creates a response from the domain document.
func FromDocument(d *invoice.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                 d.ID.String(),
		Kind:               string(d.Kind),
		SequenceIdentifier: d.SequenceIdentifier,
		DocumentType:       string(d.DocumentType),
		Description:        d.DocumentType.Description(d.Series),
		SeriesPrefix:       string(d.Series),
		Date:               DateOf(d.Date),
		DueDate:            DatePtr(d.DueDate),
		CustomerTaxID:      d.CustomerTaxID,
		CustomerName:       d.CustomerName,
		Currency:           d.Currency,
		Subtotal:           d.Subtotal,
		TaxTotal:           d.TaxTotal,
		Total:              d.Total,
		Status:             string(d.Status),
		RelatedDocument:    d.RelatedDocument,
		ModificationReason: d.ModificationReason,
		Comment:            d.Comment,
		PaidAt:             d.PaidAt,
		CancelledAt:        d.CancelledAt,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt,
		Lines: lo.Map(d.Lines, func(l invoice.Line, _ int) LineResponse {
			return LineResponse{
				LineNo:      l.LineNo,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				TaxRate:     l.TaxRate,
				TaxAmount:   l.TaxAmount,
				Amount:      l.Amount,
			}
		}),
	}
	if d.CustomerID != nil {
		resp.CustomerID = lo.ToPtr(d.CustomerID.String())
	}
	return resp
}
