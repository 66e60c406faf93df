package purchase

import (
	"context"

	"facturard/internal/core/id"
	"facturard/internal/core/tx"
	"facturard/internal/domain"
	"facturard/internal/domain/audit"
	"facturard/pkg/logger"
)

const entityName = "purchase"

// Service manages purchase records.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new purchase service.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, txManager: txManager, audit: recorder}
}

// Create validates and stores a purchase for the owner in ctx.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Purchase, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	p := New(ownerID, req)
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, entityName, p.ID, audit.ActionCreate, map[string]any{"after": p})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase recorded", "purchase_id", p.ID, "supplier_ncf", p.SupplierNCF)
	return p, nil
}

// Get returns one purchase.
func (s *Service) Get(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, ownerID, purchaseID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, purchaseID)
	}
	return p, nil
}

// List returns a page of purchases.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Purchase], error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return domain.ListResult[*Purchase]{}, err
	}
	filter.Normalize()
	return s.repo.List(ctx, ownerID, filter)
}

// Delete removes a purchase.
func (s *Service) Delete(ctx context.Context, purchaseID id.ID) error {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, ownerID, purchaseID); err != nil {
			return domain.NormalizeGetErr(err, entityName, purchaseID)
		}
		return s.audit.Record(ctx, entityName, purchaseID, audit.ActionDelete, nil)
	})
}
