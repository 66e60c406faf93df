package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/core/tx"
	"facturard/internal/domain"
	"facturard/pkg/logger"
)

const entityName = "subscription"

// Config holds subscription defaults.
type Config struct {
	// DefaultPlan is assigned on registration.
	DefaultPlan string
	// Period is the length of a billing period.
	Period time.Duration
}

// Service manages subscriptions and quota checks.
type Service struct {
	repo      Repository
	usage     UsageCounter
	policy    *QuotaPolicy
	txManager tx.Manager
	events    domain.EventPublisher
	cfg       Config
	now       func() time.Time
}

// NewService creates a new subscription service.
func NewService(repo Repository, usage UsageCounter, policy *QuotaPolicy, txManager tx.Manager, events domain.EventPublisher, cfg Config) *Service {
	if events == nil {
		events = domain.NopPublisher{}
	}
	if cfg.DefaultPlan == "" {
		cfg.DefaultPlan = "free"
	}
	if cfg.Period <= 0 {
		cfg.Period = 30 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		usage:     usage,
		policy:    policy,
		txManager: txManager,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

// StartDefault subscribes a new account to the default plan. Runs inside the
// registration transaction.
func (s *Service) StartDefault(ctx context.Context, ownerID id.ID) error {
	if _, err := s.repo.GetPlan(ctx, s.cfg.DefaultPlan); err != nil {
		return domain.NormalizeGetErr(err, "plan", s.cfg.DefaultPlan)
	}
	now := s.now().UTC()
	sub := &Subscription{
		ID:                 id.New(),
		OwnerID:            ownerID,
		PlanCode:           s.cfg.DefaultPlan,
		Status:             StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(s.cfg.Period),
		CreatedAt:          now,
		UpdatedAt:          now,
		Version:            1,
	}
	return s.repo.Create(ctx, sub)
}

// ListPlans returns the plans on offer.
func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(plans, func(p *Plan, _ int) bool { return p.IsActive }), nil
}

// SavePlan validates the quota expression and stores the plan.
func (s *Service) SavePlan(ctx context.Context, p *Plan) error {
	p.Code = strings.TrimSpace(p.Code)
	if p.Code == "" || strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("plan code and name are required")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("plan price must not be negative").WithDetail("field", "price")
	}
	if p.QuotaExpression == "" {
		p.QuotaExpression = "true"
	}
	if _, err := s.policy.Compile(p.QuotaExpression); err != nil {
		return err
	}
	return s.repo.UpsertPlan(ctx, p)
}

// Get returns the subscription of the owner in ctx with its plan and usage.
func (s *Service) Get(ctx context.Context) (*Overview, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sub, plan, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	used, err := s.usage.CountSince(ctx, ownerID, monthStart(s.now()))
	if err != nil {
		return nil, err
	}
	return &Overview{Subscription: sub, Plan: plan, Usage: int64(used)}, nil
}

// Activate moves the owner in ctx to planCode and starts a new period.
// Payment capture happens outside this service; externalRef records it.
func (s *Service) Activate(ctx context.Context, planCode, externalRef string) (*Subscription, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var sub *Subscription
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.repo.GetPlan(ctx, planCode)
		if err != nil {
			return domain.NormalizeGetErr(err, "plan", planCode)
		}
		if !plan.IsActive {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Plan is not available").
				WithDetail("plan", planCode)
		}

		current, err := s.repo.GetByOwner(ctx, ownerID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, ownerID)
		}
		now := s.now().UTC()
		current.PlanCode = plan.Code
		current.Status = StatusActive
		current.CurrentPeriodStart = now
		current.CurrentPeriodEnd = now.Add(s.cfg.Period)
		current.CancelledAt = nil
		current.ExternalRef = externalRef
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		sub = current
		return s.publish(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "subscription activated", "plan", planCode, "period_end", sub.CurrentPeriodEnd)
	return sub, nil
}

// Cancel stops the subscription of the owner in ctx. Issuance is blocked
// until a plan is activated again.
func (s *Service) Cancel(ctx context.Context) (*Subscription, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var sub *Subscription
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByOwner(ctx, ownerID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, ownerID)
		}
		if current.Status == StatusCancelled {
			sub = current
			return nil
		}
		now := s.now().UTC()
		current.Status = StatusCancelled
		current.CancelledAt = &now
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		sub = current
		return s.publish(ctx, current)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CheckIssuance returns nil when ownerID may issue another document:
// the subscription is active and the plan's quota expression holds for the
// documents issued this calendar month.
func (s *Service) CheckIssuance(ctx context.Context, ownerID id.ID) error {
	sub, plan, err := s.load(ctx, ownerID)
	if err != nil {
		return err
	}
	if sub.Status != StatusActive {
		return apperror.NewSubscriptionInactive(string(sub.Status))
	}

	used, err := s.usage.CountSince(ctx, ownerID, monthStart(s.now()))
	if err != nil {
		return err
	}
	allowed, err := s.policy.Allows(plan.QuotaExpression, Usage{DocumentsThisMonth: int64(used), Plan: plan.Code})
	if err != nil {
		return apperror.NewInternal(err)
	}
	if !allowed {
		return apperror.NewQuotaExceeded(plan.Code).WithDetail("documents_this_month", used)
	}
	return nil
}

// RollPeriods runs at period end: free plans start a new period, paid plans
// become past_due until Activate records a payment. Returns the number of
// subscriptions changed.
func (s *Service) RollPeriods(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.repo.ListPeriodEnded(ctx, now)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, sub := range due {
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			plan, err := s.repo.GetPlan(ctx, sub.PlanCode)
			if err != nil {
				return err
			}
			if plan.IsFree() {
				sub.CurrentPeriodStart = sub.CurrentPeriodEnd
				for !sub.CurrentPeriodEnd.After(now) {
					sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.Add(s.cfg.Period)
				}
			} else {
				sub.Status = StatusPastDue
			}
			sub.UpdatedAt = now
			if err := s.repo.Update(ctx, sub); err != nil {
				return err
			}
			return s.publish(ctx, sub)
		})
		if err != nil {
			logger.Warn(ctx, "roll subscription period failed", "owner_id", sub.OwnerID, "error", err)
			continue
		}
		changed++
	}
	return changed, nil
}

func (s *Service) load(ctx context.Context, ownerID id.ID) (*Subscription, *Plan, error) {
	sub, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewSubscriptionInactive("none")
		}
		return nil, nil, err
	}
	plan, err := s.repo.GetPlan(ctx, sub.PlanCode)
	if err != nil {
		return nil, nil, domain.NormalizeGetErr(err, "plan", sub.PlanCode)
	}
	return sub, plan, nil
}

func (s *Service) publish(ctx context.Context, sub *Subscription) error {
	return s.events.Publish(ctx, domain.Event{
		AggregateType: entityName,
		AggregateID:   sub.ID,
		OwnerID:       sub.OwnerID,
		Type:          domain.EventSubscriptionChanged,
		Payload: map[string]any{
			"plan":       sub.PlanCode,
			"status":     sub.Status,
			"period_end": sub.CurrentPeriodEnd,
		},
	})
}
