// Package invoice provides fiscal documents: invoices and the credit notes
// that annul them. Every document carries an NCF drawn from the owner's
// active numbering batch in the same transaction that stores it.
package invoice

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/types"
)

// Kind distinguishes invoices from credit notes.
type Kind string

const (
	KindInvoice    Kind = "invoice"
	KindCreditNote Kind = "credit_note"
)

// Status is the lifecycle state of a fiscal document.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
	// StatusModified marks an invoice that has a credit note. Terminal.
	StatusModified Status = "modified"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled, StatusModified},
	StatusPaid:    {StatusCancelled, StatusModified},
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled, StatusModified:
		return true
	}
	return false
}

// CanTransitionTo reports whether the document may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Document is an issued fiscal document.
type Document struct {
	entity.Document
	entity.CurrencyAware

	Kind Kind `db:"kind" json:"kind"`

	// SequenceIdentifier is the NCF. Assigned once at issuance, never changed or reused.
	SequenceIdentifier string                 `db:"sequence_identifier" json:"sequenceIdentifier"`
	DocumentType       numerator.DocumentType `db:"document_type" json:"documentType"`
	Series             numerator.Series       `db:"series_prefix" json:"seriesPrefix"`
	BatchID            id.ID                  `db:"batch_id" json:"batchId"`

	// Customer data is copied so the document survives customer edits.
	CustomerID    *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CustomerTaxID string `db:"customer_tax_id" json:"customerTaxId,omitempty"`
	CustomerName  string `db:"customer_name" json:"customerName,omitempty"`

	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	TaxTotal types.Money `db:"tax_total" json:"taxTotal"`
	Total    types.Money `db:"total" json:"total"`

	Status Status `db:"status" json:"status"`

	// RelatedDocument links an invoice and its credit note by NCF, both ways.
	RelatedDocument    string `db:"related_document" json:"relatedDocument,omitempty"`
	ModificationReason string `db:"modification_reason" json:"modificationReason,omitempty"`

	PaidAt      *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one item of a document. Amount is net of ITBIS.
type Line struct {
	ID          id.ID           `db:"id" json:"id"`
	DocumentID  id.ID           `db:"document_id" json:"-"`
	LineNo      int             `db:"line_no" json:"lineNo"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   types.Money     `db:"unit_price" json:"unitPrice"`
	TaxRate     decimal.Decimal `db:"tax_rate" json:"taxRate"`
	TaxAmount   types.Money     `db:"tax_amount" json:"taxAmount"`
	Amount      types.Money     `db:"amount" json:"amount"`
}

// LineInput is a line as entered by the user.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   types.Money
	TaxRate     decimal.Decimal
}

// Validate checks one input line. index is used in error details.
func (in LineInput) Validate(index int) error {
	if strings.TrimSpace(in.Description) == "" {
		return apperror.NewValidation("line description is required").WithDetail("line", index+1)
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("line quantity must be positive").WithDetail("line", index+1)
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("line unit price must not be negative").WithDetail("line", index+1)
	}
	if err := types.ValidateTaxRate(in.TaxRate); err != nil {
		return apperror.NewValidation(err.Error()).WithDetail("line", index+1)
	}
	return nil
}

// SetLines replaces the lines and recomputes totals.
func (d *Document) SetLines(inputs []LineInput) {
	d.Lines = make([]Line, 0, len(inputs))
	for i, in := range inputs {
		amount := types.Round(in.Quantity.Mul(in.UnitPrice))
		d.Lines = append(d.Lines, Line{
			ID:          id.New(),
			DocumentID:  d.ID,
			LineNo:      i + 1,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TaxRate:     in.TaxRate,
			TaxAmount:   types.TaxOf(amount, in.TaxRate),
			Amount:      amount,
		})
	}
	d.RecalculateTotals()
}

// RecalculateTotals sums line amounts into the header.
func (d *Document) RecalculateTotals() {
	subtotal, tax := types.Zero(), types.Zero()
	for _, l := range d.Lines {
		subtotal = subtotal.Add(l.Amount)
		tax = tax.Add(l.TaxAmount)
	}
	d.Subtotal = subtotal
	d.TaxTotal = tax
	d.Total = subtotal.Add(tax)
}

// Inputs converts stored lines back to inputs, used for full-reversal credit notes.
func (d *Document) Inputs() []LineInput {
	out := make([]LineInput, 0, len(d.Lines))
	for _, l := range d.Lines {
		out = append(out, LineInput{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
		})
	}
	return out
}

// Validate implements entity.Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}
	if err := d.ValidateCurrency(ctx); err != nil {
		return err
	}
	if len(d.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	if d.DueDate != nil && d.DueDate.Before(d.Date) {
		return apperror.NewValidation("due date must not precede the document date").WithDetail("field", "dueDate")
	}
	return nil
}

// transition moves the document to next or returns INVALID_STATUS_TRANSITION.
func (d *Document) transition(next Status, at time.Time) error {
	if !d.Status.CanTransitionTo(next) {
		return apperror.NewInvalidStatusTransition(string(d.Status), string(next))
	}
	d.Status = next
	switch next {
	case StatusPaid:
		d.PaidAt = &at
	case StatusCancelled:
		d.CancelledAt = &at
	}
	d.UpdatedAt = at
	return nil
}

// IssueInvoiceRequest holds the input for a new invoice.
type IssueInvoiceRequest struct {
	DocumentType  numerator.DocumentType
	CustomerTaxID string
	CustomerName  string
	Date          time.Time
	DueDate       *time.Time
	Currency      string
	Comment       string
	Lines         []LineInput
}

// IssueCreditNoteRequest holds the input for a credit note. Empty Lines
// reverses the original in full.
type IssueCreditNoteRequest struct {
	OriginalID id.ID
	Reason     string
	Date       time.Time
	Lines      []LineInput
}

// ListFilter narrows document listings.
type ListFilter struct {
	Kind       Kind
	CustomerID *id.ID
}
