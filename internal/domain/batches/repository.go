package batches

import (
	"context"

	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
)

// Repository defines batch persistence. It never updates cursor.
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, ownerID, batchID id.ID) (*Batch, error)
	List(ctx context.Context, ownerID id.ID, filter Filter) ([]*Batch, error)

	// DeactivateActive deactivates the active batches of the owner, type and
	// series and returns their IDs.
	DeactivateActive(ctx context.Context, ownerID id.ID, docType numerator.DocumentType, series numerator.Series) ([]id.ID, error)

	// Deactivate deactivates one batch. Deactivating an inactive batch is a no-op.
	Deactivate(ctx context.Context, ownerID, batchID id.ID) error

	// ListLowStock returns active batches of every owner with at most
	// threshold numbers left.
	ListLowStock(ctx context.Context, threshold int64) ([]*Batch, error)
}
