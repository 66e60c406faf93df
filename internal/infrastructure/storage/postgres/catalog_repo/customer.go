package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/customers"
	"facturard/internal/infrastructure/storage/postgres"
)

// CustomerRepo implements customers.Repository.
type CustomerRepo struct {
	*BaseRepo[*customers.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(qp postgres.QuerierProvider) *CustomerRepo {
	base := NewBaseRepo(qp, "customers",
		postgres.ExtractDBColumns[customers.Customer](),
		func() *customers.Customer { return &customers.Customer{} },
	).WithSearch("name", "tax_id", "email").WithDefaultOrder("name ASC")

	return &CustomerRepo{BaseRepo: base}
}

// Create inserts a customer, mapping the (owner, tax_id) unique index.
func (r *CustomerRepo) Create(ctx context.Context, c *customers.Customer) error {
	if err := r.BaseRepo.Create(ctx, c); err != nil {
		if postgres.IsUniqueViolation(err, "customers_owner_tax_id_key") {
			return apperror.NewDuplicate("customer", "taxId", c.TaxID)
		}
		return err
	}
	return nil
}

// GetByTaxID retrieves a customer by normalized tax ID, including deleted ones.
func (r *CustomerRepo) GetByTaxID(ctx context.Context, ownerID id.ID, taxID string) (*customers.Customer, error) {
	q := r.Select(ownerID).Where(squirrel.Eq{"tax_id": taxID}).Limit(1)
	return r.FindOne(ctx, q, taxID)
}

// List retrieves customers with filtering.
func (r *CustomerRepo) List(ctx context.Context, ownerID id.ID, filter domain.ListFilter) (domain.ListResult[*customers.Customer], error) {
	return r.BaseRepo.List(ctx, ownerID, filter, nil)
}

// TouchLastInvoice sets last_invoice_at without bumping version.
func (r *CustomerRepo) TouchLastInvoice(ctx context.Context, ownerID, customerID id.ID, at time.Time) error {
	sql, args, err := r.Builder().
		Update("customers").
		Set("last_invoice_at", at).
		Where(squirrel.Eq{"id": customerID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("touch customer: %w", err)
	}
	return nil
}

var _ customers.Repository = (*CustomerRepo)(nil)
