package customers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/customers"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	mu   sync.Mutex
	rows map[id.ID]customers.Customer
}

func newMemRepo() *memRepo { return &memRepo{rows: map[id.ID]customers.Customer{}} }

func (m *memRepo) Create(_ context.Context, c *customers.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = *c
	return nil
}

func (m *memRepo) Update(_ context.Context, c *customers.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[c.ID]
	if !ok || stored.Version != c.Version {
		return apperror.NewConcurrentModification("customers", c.ID)
	}
	next := *c
	next.Version++
	m.rows[c.ID] = next
	return nil
}

func (m *memRepo) GetByID(_ context.Context, ownerID, customerID id.ID) (*customers.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[customerID]
	if !ok || c.OwnerID != ownerID {
		return nil, apperror.NewNotFound("customers", customerID)
	}
	return &c, nil
}

func (m *memRepo) GetByTaxID(_ context.Context, ownerID id.ID, taxID string) (*customers.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.OwnerID == ownerID && c.TaxID == taxID {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("customers", taxID)
}

func (m *memRepo) List(_ context.Context, ownerID id.ID, _ domain.ListFilter) (domain.ListResult[*customers.Customer], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res domain.ListResult[*customers.Customer]
	for _, c := range m.rows {
		if c.OwnerID == ownerID && !c.DeletionMark {
			cp := c
			res.Items = append(res.Items, &cp)
		}
	}
	res.TotalCount = int64(len(res.Items))
	return res, nil
}

func (m *memRepo) SetDeletionMark(_ context.Context, ownerID, customerID id.ID, marked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[customerID]
	if !ok || c.OwnerID != ownerID {
		return apperror.NewNotFound("customers", customerID)
	}
	c.DeletionMark = marked
	m.rows[customerID] = c
	return nil
}

func (m *memRepo) TouchLastInvoice(_ context.Context, ownerID, customerID id.ID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[customerID]
	c.LastInvoiceAt = &at
	m.rows[customerID] = c
	return nil
}

func ownerCtx(ownerID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: ownerID.String()})
}

func TestCreate_NormalizesAndValidatesTaxID(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()

	c := &customers.Customer{TaxID: "001-1645428-1", Name: "Juan Pérez"}
	require.NoError(t, svc.Create(ownerCtx(owner), c))
	assert.Equal(t, "00116454281", c.TaxID)
	assert.Equal(t, owner, c.OwnerID)
	assert.False(t, id.IsNil(c.ID))
	assert.Equal(t, 1, c.Version)

	bad := &customers.Customer{TaxID: "00116454282", Name: "Otro"}
	err := svc.Create(ownerCtx(owner), bad)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTaxID))
}

func TestCreate_DuplicateTaxIDWithinOwner(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()

	require.NoError(t, svc.Create(ownerCtx(owner), &customers.Customer{TaxID: "101010101", Name: "A"}))
	err := svc.Create(ownerCtx(owner), &customers.Customer{TaxID: "1-01-01010-1", Name: "B"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	// The rejected create leaves the first row intact.
	first, err := svc.GetByTaxID(ownerCtx(owner), "101010101")
	require.NoError(t, err)
	assert.Equal(t, "A", first.Name)

	// Another account may register the same customer.
	require.NoError(t, svc.Create(ownerCtx(id.New()), &customers.Customer{TaxID: "101010101", Name: "A"}))
}

func TestCreate_AssignsDistinctIDs(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()

	a := &customers.Customer{TaxID: "101010101", Name: "A"}
	b := &customers.Customer{TaxID: "130000001", Name: "B"}
	require.NoError(t, svc.Create(ownerCtx(owner), a))
	require.NoError(t, svc.Create(ownerCtx(owner), b))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, repo.rows, 2)
}

func TestCreate_RequiresOwner(t *testing.T) {
	svc := customers.NewService(newMemRepo(), passthroughTx{}, nil)
	err := svc.Create(context.Background(), &customers.Customer{Name: "X"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestGetByTaxID(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()
	require.NoError(t, svc.Create(ownerCtx(owner), &customers.Customer{TaxID: "130000001", Name: "Ferretería"}))

	c, err := svc.GetByTaxID(ownerCtx(owner), "1-30-00000-1")
	require.NoError(t, err)
	assert.Equal(t, "Ferretería", c.Name)

	_, err = svc.GetByTaxID(ownerCtx(owner), "130000002")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTaxID))

	_, err = svc.GetByTaxID(ownerCtx(id.New()), "130000001")
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpsert(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()
	ctx := context.Background()

	first, err := svc.Upsert(ctx, owner, "101-01010-1", "Comercial Uno")
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := svc.Upsert(ctx, owner, "101010101", "Comercial Uno SRL")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Comercial Uno SRL", again.Name)
	assert.Len(t, repo.rows, 1)

	anon, err := svc.Upsert(ctx, owner, "", "Consumidor final")
	require.NoError(t, err)
	assert.Nil(t, anon)

	_, err = svc.Upsert(ctx, owner, "101010111", "X")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTaxID))
}

func TestUpdate_StaleVersion(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	owner := id.New()
	ctx := ownerCtx(owner)

	c := &customers.Customer{TaxID: "101010101", Name: "A"}
	require.NoError(t, svc.Create(ctx, c))

	stale := *c
	c.Name = "B"
	require.NoError(t, svc.Update(ctx, c))

	stale.Name = "C"
	err := svc.Update(ctx, &stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestDelete_HidesFromList(t *testing.T) {
	repo := newMemRepo()
	svc := customers.NewService(repo, passthroughTx{}, nil)
	ctx := ownerCtx(id.New())

	c := &customers.Customer{Name: "Walk-in"}
	require.NoError(t, svc.Create(ctx, c))
	require.NoError(t, svc.Delete(ctx, c.ID))

	res, err := svc.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
