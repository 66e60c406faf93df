package dto

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"facturard/internal/domain/subscription"
)

// ActivateRequest switches the account to a plan.
type ActivateRequest struct {
	PlanCode    string `json:"planCode" binding:"required,max=50"`
	ExternalRef string `json:"externalRef" binding:"max=200"`
}

// PlanResponse is a subscription plan.
type PlanResponse struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	QuotaExpression string          `json:"quotaExpression"`
}

// FromPlan creates a response from the domain plan.
func FromPlan(p *subscription.Plan) PlanResponse {
	return PlanResponse{
		Code:            p.Code,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        p.Currency,
		QuotaExpression: p.QuotaExpression,
	}
}

// FromPlans maps a plan list.
func FromPlans(plans []*subscription.Plan) []PlanResponse {
	return lo.Map(plans, func(p *subscription.Plan, _ int) PlanResponse { return FromPlan(p) })
}

// SubscriptionResponse is the account's subscription.
type SubscriptionResponse struct {
	PlanCode           string     `json:"planCode"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
}

// FromSubscription creates a response from the domain subscription.
func FromSubscription(s *subscription.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		PlanCode:           s.PlanCode,
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelledAt:        s.CancelledAt,
	}
}

// OverviewResponse combines subscription, plan and current usage.
type OverviewResponse struct {
	Subscription       SubscriptionResponse `json:"subscription"`
	Plan               *PlanResponse        `json:"plan,omitempty"`
	DocumentsThisMonth int64                `json:"documentsThisMonth"`
}

// FromOverview creates a response from the domain overview.
func FromOverview(o *subscription.Overview) OverviewResponse {
	resp := OverviewResponse{
		Subscription:       FromSubscription(o.Subscription),
		DocumentsThisMonth: o.Usage,
	}
	if o.Plan != nil {
		resp.Plan = lo.ToPtr(FromPlan(o.Plan))
	}
	return resp
}
