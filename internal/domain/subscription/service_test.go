package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
	"facturard/internal/core/types"
	"facturard/internal/domain/subscription"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	plans map[string]*subscription.Plan
	subs  map[id.ID]*subscription.Subscription
}

func newMemRepo() *memRepo {
	return &memRepo{
		plans: map[string]*subscription.Plan{
			"free": {Code: "free", Name: "Gratis", Price: types.Zero(), QuotaExpression: "documents_this_month < 2", IsActive: true},
			"pro":  {Code: "pro", Name: "Pro", Price: types.MustMoney("990"), QuotaExpression: "true", IsActive: true},
			"old":  {Code: "old", Name: "Legacy", Price: types.MustMoney("10"), QuotaExpression: "true"},
		},
		subs: map[id.ID]*subscription.Subscription{},
	}
}

func (m *memRepo) ListPlans(context.Context) ([]*subscription.Plan, error) {
	return []*subscription.Plan{m.plans["free"], m.plans["pro"], m.plans["old"]}, nil
}

func (m *memRepo) GetPlan(_ context.Context, code string) (*subscription.Plan, error) {
	if p, ok := m.plans[code]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("plans", code)
}

func (m *memRepo) UpsertPlan(_ context.Context, p *subscription.Plan) error {
	m.plans[p.Code] = p
	return nil
}

func (m *memRepo) GetByOwner(_ context.Context, ownerID id.ID) (*subscription.Subscription, error) {
	if s, ok := m.subs[ownerID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperror.NewNotFound("subscriptions", ownerID)
}

func (m *memRepo) Create(_ context.Context, s *subscription.Subscription) error {
	cp := *s
	m.subs[s.OwnerID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, s *subscription.Subscription) error {
	stored, ok := m.subs[s.OwnerID]
	if !ok || stored.Version != s.Version {
		return apperror.NewConcurrentModification("subscriptions", s.ID)
	}
	s.Version++
	cp := *s
	m.subs[s.OwnerID] = &cp
	return nil
}

func (m *memRepo) ListPeriodEnded(_ context.Context, t time.Time) ([]*subscription.Subscription, error) {
	var out []*subscription.Subscription
	for _, s := range m.subs {
		if s.Status == subscription.StatusActive && s.CurrentPeriodEnd.Before(t) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fixedUsage int

func (u fixedUsage) CountSince(context.Context, id.ID, time.Time) (int, error) { return int(u), nil }

func newService(t *testing.T, repo *memRepo, used int) *subscription.Service {
	t.Helper()
	policy, err := subscription.NewQuotaPolicy()
	require.NoError(t, err)
	return subscription.NewService(repo, fixedUsage(used), policy, passthroughTx{}, nil, subscription.Config{})
}

func ownerCtx(ownerID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: ownerID.String()})
}

func TestCheckIssuance(t *testing.T) {
	owner := id.New()

	t.Run("no subscription", func(t *testing.T) {
		svc := newService(t, newMemRepo(), 0)
		err := svc.CheckIssuance(context.Background(), owner)
		assert.True(t, apperror.HasCode(err, apperror.CodeSubscriptionInactive))
	})

	t.Run("within quota", func(t *testing.T) {
		repo := newMemRepo()
		svc := newService(t, repo, 1)
		require.NoError(t, svc.StartDefault(context.Background(), owner))
		assert.NoError(t, svc.CheckIssuance(context.Background(), owner))
	})

	t.Run("quota exceeded", func(t *testing.T) {
		repo := newMemRepo()
		svc := newService(t, repo, 2)
		require.NoError(t, svc.StartDefault(context.Background(), owner))
		err := svc.CheckIssuance(context.Background(), owner)
		assert.True(t, apperror.HasCode(err, apperror.CodeQuotaExceeded), "got %v", err)
	})

	t.Run("cancelled", func(t *testing.T) {
		repo := newMemRepo()
		svc := newService(t, repo, 0)
		require.NoError(t, svc.StartDefault(context.Background(), owner))
		_, err := svc.Cancel(ownerCtx(owner))
		require.NoError(t, err)

		err = svc.CheckIssuance(context.Background(), owner)
		assert.True(t, apperror.HasCode(err, apperror.CodeSubscriptionInactive))
	})
}

func TestActivate(t *testing.T) {
	repo := newMemRepo()
	svc := newService(t, repo, 5)
	owner := id.New()
	ctx := ownerCtx(owner)
	require.NoError(t, svc.StartDefault(ctx, owner))
	require.Error(t, svc.CheckIssuance(ctx, owner))

	sub, err := svc.Activate(ctx, "pro", "PAY-123")
	require.NoError(t, err)
	assert.Equal(t, "pro", sub.PlanCode)
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.NoError(t, svc.CheckIssuance(ctx, owner))

	_, err = svc.Activate(ctx, "old", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
	_, err = svc.Activate(ctx, "missing", "")
	assert.True(t, apperror.IsNotFound(err))

	overview, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), overview.Usage)
	assert.Equal(t, "Pro", overview.Plan.Name)
}

func TestListPlans_OnlyActive(t *testing.T) {
	svc := newService(t, newMemRepo(), 0)
	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestSavePlan_RejectsBadExpression(t *testing.T) {
	svc := newService(t, newMemRepo(), 0)

	err := svc.SavePlan(context.Background(), &subscription.Plan{Code: "x", Name: "X", QuotaExpression: "documents_this_month +"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = svc.SavePlan(context.Background(), &subscription.Plan{Code: "x", Name: "X", QuotaExpression: "documents_this_month + 1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = svc.SavePlan(context.Background(), &subscription.Plan{Code: "x", Name: "X", QuotaExpression: `plan == "x" && documents_this_month < 10`})
	assert.NoError(t, err)
}

func TestRollPeriods(t *testing.T) {
	repo := newMemRepo()
	svc := newService(t, repo, 0)
	free, paid := id.New(), id.New()
	past := time.Now().Add(-time.Hour)

	for owner, plan := range map[id.ID]string{free: "free", paid: "pro"} {
		require.NoError(t, repo.Create(context.Background(), &subscription.Subscription{
			ID: id.New(), OwnerID: owner, PlanCode: plan, Status: subscription.StatusActive,
			CurrentPeriodStart: past.Add(-24 * time.Hour), CurrentPeriodEnd: past, Version: 1,
		}))
	}

	n, err := svc.RollPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, subscription.StatusActive, repo.subs[free].Status)
	assert.True(t, repo.subs[free].CurrentPeriodEnd.After(time.Now()))
	assert.Equal(t, subscription.StatusPastDue, repo.subs[paid].Status)
}
