// Package billing_repo provides PostgreSQL storage for plans and subscriptions.
package billing_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain/subscription"
	"facturard/internal/infrastructure/storage/postgres"
)

const (
	plansTable         = "plans"
	subscriptionsTable = "subscriptions"
)

var (
	planColumns         = postgres.ExtractDBColumns[subscription.Plan]()
	subscriptionColumns = postgres.ExtractDBColumns[subscription.Subscription]()
)

// SubscriptionRepo implements subscription.Repository.
type SubscriptionRepo struct {
	qp      postgres.QuerierProvider
	builder squirrel.StatementBuilderType
}

// NewSubscriptionRepo creates a new subscription repository.
func NewSubscriptionRepo(qp postgres.QuerierProvider) *SubscriptionRepo {
	return &SubscriptionRepo{
		qp:      qp,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ListPlans returns every plan in display order.
func (r *SubscriptionRepo) ListPlans(ctx context.Context) ([]*subscription.Plan, error) {
	sql, args, err := r.builder.Select(planColumns...).From(plansTable).OrderBy("sort_order", "code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	plans := []*subscription.Plan{}
	if err := pgxscan.Select(ctx, r.qp.GetQuerier(ctx), &plans, sql, args...); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// GetPlan retrieves a plan by code.
func (r *SubscriptionRepo) GetPlan(ctx context.Context, code string) (*subscription.Plan, error) {
	sql, args, err := r.builder.Select(planColumns...).From(plansTable).Where(squirrel.Eq{"code": code}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var p subscription.Plan
	if err := pgxscan.Get(ctx, r.qp.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(plansTable, code)
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

// UpsertPlan inserts a plan or replaces the one with the same code.
func (r *SubscriptionRepo) UpsertPlan(ctx context.Context, p *subscription.Plan) error {
	sql, args, err := r.builder.
		Insert(plansTable).
		SetMap(postgres.StructToMap(p)).
		Suffix(`ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			quota_expression = EXCLUDED.quota_expression,
			is_active = EXCLUDED.is_active,
			sort_order = EXCLUDED.sort_order`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.qp.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}
	return nil
}

// GetByOwner retrieves the owner's subscription.
func (r *SubscriptionRepo) GetByOwner(ctx context.Context, ownerID id.ID) (*subscription.Subscription, error) {
	sql, args, err := r.builder.
		Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(squirrel.Eq{"owner_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var s subscription.Subscription
	if err := pgxscan.Get(ctx, r.qp.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(subscriptionsTable, ownerID.String())
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &s, nil
}

// Create inserts a subscription. An owner has at most one.
func (r *SubscriptionRepo) Create(ctx context.Context, s *subscription.Subscription) error {
	sql, args, err := r.builder.Insert(subscriptionsTable).SetMap(postgres.StructToMap(s)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.qp.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert subscription: %w", err), subscriptionsTable)
	}
	return nil
}

// Update writes the mutable columns with optimistic locking and bumps Version.
func (r *SubscriptionRepo) Update(ctx context.Context, s *subscription.Subscription) error {
	sql, args, err := r.builder.
		Update(subscriptionsTable).
		SetMap(map[string]any{
			"plan_code":            s.PlanCode,
			"status":               s.Status,
			"current_period_start": s.CurrentPeriodStart,
			"current_period_end":   s.CurrentPeriodEnd,
			"cancelled_at":         s.CancelledAt,
			"external_ref":         s.ExternalRef,
			"updated_at":           s.UpdatedAt,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID, "version": s.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.qp.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update subscription: %w", err), subscriptionsTable)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(subscriptionsTable, s.ID)
	}
	s.Version++
	return nil
}

// ListPeriodEnded returns active subscriptions whose period ended before t.
func (r *SubscriptionRepo) ListPeriodEnded(ctx context.Context, t time.Time) ([]*subscription.Subscription, error) {
	sql, args, err := r.builder.
		Select(subscriptionColumns...).
		From(subscriptionsTable).
		Where(squirrel.Eq{"status": subscription.StatusActive}).
		Where(squirrel.Lt{"current_period_end": t}).
		OrderBy("current_period_end").
		Limit(500).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	subs := []*subscription.Subscription{}
	if err := pgxscan.Select(ctx, r.qp.GetQuerier(ctx), &subs, sql, args...); err != nil {
		return nil, fmt.Errorf("list ended subscriptions: %w", err)
	}
	return subs, nil
}

var _ subscription.Repository = (*SubscriptionRepo)(nil)
