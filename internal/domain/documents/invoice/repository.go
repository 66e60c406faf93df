package invoice

import (
	"context"
	"time"

	"facturard/internal/core/id"
	"facturard/internal/domain"
)

// Repository defines fiscal document persistence. All reads are owner scoped.
type Repository interface {
	// Create inserts the header and its lines.
	Create(ctx context.Context, doc *Document) error

	GetByID(ctx context.Context, ownerID, docID id.ID) (*Document, error)

	// GetForUpdate locks the header row until the transaction ends.
	GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*Document, error)

	GetBySequence(ctx context.Context, ownerID id.ID, sequenceIdentifier string) (*Document, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)

	// UpdateStatus writes the lifecycle columns with optimistic locking.
	UpdateStatus(ctx context.Context, doc *Document) error

	List(ctx context.Context, ownerID id.ID, base domain.ListFilter, filter ListFilter) (domain.ListResult[*Document], error)

	// ListForPeriod returns every document dated in [from, to), lines not loaded.
	ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*Document, error)

	// CountSince counts documents created at or after since.
	CountSince(ctx context.Context, ownerID id.ID, since time.Time) (int, error)
}
