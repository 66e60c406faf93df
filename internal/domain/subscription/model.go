// Package subscription tracks the plan each account pays for and enforces
// the plan's document quota before issuance.
package subscription

import (
	"time"

	"facturard/internal/core/id"
	"facturard/internal/core/types"
)

// Status of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusPastDue   Status = "past_due"
	StatusCancelled Status = "cancelled"
)

// Plan is a priced offering. QuotaExpression is a CEL boolean expression
// evaluated before each issuance, e.g. "documents_this_month < 50".
type Plan struct {
	Code            string      `db:"code" json:"code"`
	Name            string      `db:"name" json:"name"`
	Price           types.Money `db:"price" json:"price"`
	Currency        string      `db:"currency" json:"currency"`
	QuotaExpression string      `db:"quota_expression" json:"quotaExpression"`
	IsActive        bool        `db:"is_active" json:"isActive"`
	SortOrder       int         `db:"sort_order" json:"-"`
}

// IsFree reports whether the plan costs nothing.
func (p *Plan) IsFree() bool {
	return p.Price.IsZero()
}

// Subscription binds an owner to a plan.
type Subscription struct {
	ID                 id.ID      `db:"id" json:"id"`
	OwnerID            id.ID      `db:"owner_id" json:"ownerId"`
	PlanCode           string     `db:"plan_code" json:"planCode"`
	Status             Status     `db:"status" json:"status"`
	CurrentPeriodStart time.Time  `db:"current_period_start" json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `db:"current_period_end" json:"currentPeriodEnd"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	ExternalRef        string     `db:"external_ref" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
	Version            int        `db:"version" json:"version"`
}

// Usage is the input of a quota expression.
type Usage struct {
	DocumentsThisMonth int64
	Plan               string
}

// Overview is a subscription with its plan and current usage.
type Overview struct {
	Subscription *Subscription `json:"subscription"`
	Plan         *Plan         `json:"plan"`
	Usage        int64         `json:"documentsThisMonth"`
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
