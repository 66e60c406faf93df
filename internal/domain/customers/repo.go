package customers

import (
	"context"
	"time"

	"facturard/internal/core/id"
	"facturard/internal/domain"
)

// Repository defines the interface for Customer persistence.
// Every method is scoped to ownerID.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, ownerID, customerID id.ID) (*Customer, error)

	// GetByTaxID expects a normalized tax ID.
	GetByTaxID(ctx context.Context, ownerID id.ID, taxID string) (*Customer, error)

	List(ctx context.Context, ownerID id.ID, filter domain.ListFilter) (domain.ListResult[*Customer], error)
	SetDeletionMark(ctx context.Context, ownerID, customerID id.ID, marked bool) error
	TouchLastInvoice(ctx context.Context, ownerID, customerID id.ID, at time.Time) error
}
