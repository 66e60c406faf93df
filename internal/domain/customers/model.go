// Package customers provides the customer catalog of an account.
// A customer is identified by its RNC or Cédula within the owner.
package customers

import (
	"context"
	"regexp"
	"strings"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/taxid"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer is a buyer the account issues documents to.
type Customer struct {
	entity.BaseEntity

	// TaxID is the normalized RNC (9 digits) or Cédula (11 digits).
	// Empty for walk-in consumers.
	TaxID string `db:"tax_id" json:"taxId"`

	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email,omitempty"`
	Phone   string `db:"phone" json:"phone,omitempty"`
	Address string `db:"address" json:"address,omitempty"`

	DeletionMark  bool       `db:"deletion_mark" json:"deletionMark"`
	LastInvoiceAt *time.Time `db:"last_invoice_at" json:"lastInvoiceAt,omitempty"`
}

// NewCustomer creates a customer owned by ownerID.
func NewCustomer(ownerID id.ID, taxID, name string) *Customer {
	return &Customer{
		BaseEntity: entity.NewBaseEntity(ownerID),
		TaxID:      taxid.Normalize(taxID),
		Name:       strings.TrimSpace(name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.TaxID != "" && !taxid.Validate(c.TaxID) {
		return apperror.NewInvalidTaxID("taxId")
	}
	if c.Email != "" && !emailRE.MatchString(c.Email) {
		return apperror.NewValidation("invalid email format").WithDetail("field", "email")
	}
	return nil
}

// TaxIDKind reports whether the customer is identified by RNC or Cédula.
func (c *Customer) TaxIDKind() taxid.Kind {
	return taxid.Classify(c.TaxID)
}
