package customers

import (
	"context"
	"strings"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/taxid"
	"facturard/internal/core/tx"
	"facturard/internal/domain"
	"facturard/internal/domain/audit"
	"facturard/pkg/logger"
)

const entityName = "customer"

// Service provides customer catalog operations.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*Customer]
}

// NewService creates a new customer service.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	svc := &Service{
		repo:      repo,
		txManager: txManager,
		audit:     recorder,
		hooks:     domain.NewHookRegistry[*Customer](),
	}
	svc.hooks.On(domain.BeforeCreate, svc.checkTaxIDUnique)
	svc.hooks.On(domain.BeforeUpdate, svc.checkTaxIDUnique)
	return svc
}

// Hooks exposes lifecycle hooks.
func (s *Service) Hooks() *domain.HookRegistry[*Customer] {
	return s.hooks
}

// Create validates and stores a new customer for the owner in ctx.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return err
	}
	if id.IsNil(c.ID) {
		c.BaseEntity = entity.NewBaseEntity(ownerID)
	}
	c.OwnerID = ownerID
	c.TaxID = taxid.Normalize(c.TaxID)

	if err := c.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeCreate, c); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, entityName, c.ID, audit.ActionCreate, map[string]any{"after": c}); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterCreate, c)
	})
}

// Update stores changes made to a customer. Version must match the stored row.
func (s *Service) Update(ctx context.Context, c *Customer) error {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return err
	}
	c.TaxID = taxid.Normalize(c.TaxID)
	if err := c.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetByID(ctx, ownerID, c.ID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, c.ID)
		}
		c.OwnerID = before.OwnerID
		c.CreatedAt = before.CreatedAt
		c.LastInvoiceAt = before.LastInvoiceAt
		c.UpdatedAt = time.Now().UTC()

		if err := s.hooks.Run(ctx, domain.BeforeUpdate, c); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		c.Version++
		return s.audit.Record(ctx, entityName, c.ID, audit.ActionUpdate, map[string]any{"before": before, "after": c})
	})
}

// Get returns a customer of the owner in ctx.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, ownerID, customerID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, customerID)
	}
	return c, nil
}

// GetByTaxID looks a customer up by RNC or Cédula. Formatting is ignored.
func (s *Service) GetByTaxID(ctx context.Context, raw string) (*Customer, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !taxid.Validate(raw) {
		return nil, apperror.NewInvalidTaxID("taxId")
	}
	normalized := taxid.Normalize(raw)
	c, err := s.repo.GetByTaxID(ctx, ownerID, normalized)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, normalized)
	}
	return c, nil
}

// List returns the owner's customers.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Customer], error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return domain.ListResult[*Customer]{}, err
	}
	return s.repo.List(ctx, ownerID, filter)
}

// Delete marks a customer deleted. Issued documents keep their copy of the customer data.
func (s *Service) Delete(ctx context.Context, customerID id.ID) error {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.SetDeletionMark(ctx, ownerID, customerID, true); err != nil {
			return domain.NormalizeGetErr(err, entityName, customerID)
		}
		return s.audit.Record(ctx, entityName, customerID, audit.ActionDelete, nil)
	})
}

// Upsert finds the owner's customer by tax ID or creates it, refreshing the name
// when it changed. It must run inside the caller's transaction. An empty tax ID
// means an anonymous consumer and returns nil.
func (s *Service) Upsert(ctx context.Context, ownerID id.ID, rawTaxID, name string) (*Customer, error) {
	normalized := taxid.Normalize(rawTaxID)
	if normalized == "" {
		return nil, nil
	}
	if !taxid.Validate(normalized) {
		return nil, apperror.NewInvalidTaxID("customerTaxId")
	}
	name = strings.TrimSpace(name)

	existing, err := s.repo.GetByTaxID(ctx, ownerID, normalized)
	switch {
	case err == nil:
		if existing.DeletionMark || (name != "" && name != existing.Name) {
			existing.DeletionMark = false
			if name != "" {
				existing.Name = name
			}
			existing.UpdatedAt = time.Now().UTC()
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, err
			}
			existing.Version++
		}
		return existing, nil
	case !apperror.IsNotFound(err):
		return nil, err
	}

	c := NewCustomer(ownerID, normalized, name)
	if c.Name == "" {
		c.Name = normalized
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	logger.Debug(ctx, "customer created on issuance", "customer_id", c.ID, "tax_id", normalized)
	return c, nil
}

// TouchLastInvoice records the time of the latest document issued to the customer.
func (s *Service) TouchLastInvoice(ctx context.Context, ownerID, customerID id.ID, at time.Time) error {
	return s.repo.TouchLastInvoice(ctx, ownerID, customerID, at)
}

func (s *Service) checkTaxIDUnique(ctx context.Context, c *Customer) error {
	if c.TaxID == "" {
		return nil
	}
	existing, err := s.repo.GetByTaxID(ctx, c.OwnerID, c.TaxID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewDuplicate(entityName, "taxId", c.TaxID)
	}
	return nil
}
