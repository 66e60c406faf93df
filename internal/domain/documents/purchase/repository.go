package purchase

import (
	"context"
	"time"

	"facturard/internal/core/id"
	"facturard/internal/domain"
)

// Repository defines purchase persistence.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, ownerID, purchaseID id.ID) (*Purchase, error)
	List(ctx context.Context, ownerID id.ID, filter domain.ListFilter) (domain.ListResult[*Purchase], error)
	Delete(ctx context.Context, ownerID, purchaseID id.ID) error

	// ListForPeriod returns purchases dated in [from, to).
	ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*Purchase, error)
}
