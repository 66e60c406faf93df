package subscription

import (
	"context"
	"time"

	"facturard/internal/core/id"
)

// Repository defines plan and subscription persistence.
type Repository interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	GetPlan(ctx context.Context, code string) (*Plan, error)
	UpsertPlan(ctx context.Context, p *Plan) error

	GetByOwner(ctx context.Context, ownerID id.ID) (*Subscription, error)
	Create(ctx context.Context, s *Subscription) error
	// Update writes status, plan and period with optimistic locking.
	Update(ctx context.Context, s *Subscription) error

	// ListPeriodEnded returns active subscriptions whose period ended before t.
	ListPeriodEnded(ctx context.Context, t time.Time) ([]*Subscription, error)
}

// UsageCounter counts documents issued by the owner.
type UsageCounter interface {
	CountSince(ctx context.Context, ownerID id.ID, since time.Time) (int, error)
}
