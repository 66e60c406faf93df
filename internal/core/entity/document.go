package entity

import (
	"context"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
)

// Document is the base type for fiscal and purchase records.
type Document struct {
	BaseEntity

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document dated now.
func NewDocument(ownerID id.ID) Document {
	return Document{
		BaseEntity: NewBaseEntity(ownerID),
		Date:       time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.OwnerID) {
		return apperror.NewValidation("owner is required").
			WithDetail("field", "ownerId")
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// Period returns the YYYYMM period of the document date, as used by DGII reports.
func (d *Document) Period() string {
	return d.Date.Format("200601")
}
