package document_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/purchase"
	"facturard/internal/infrastructure/storage/postgres"
)

const purchasesTable = "purchases"

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	*BaseDocumentRepo[*purchase.Purchase]
}

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txManager *postgres.TxManager) *PurchaseRepo {
	base := NewBaseDocumentRepo(txManager, purchasesTable,
		postgres.ExtractDBColumns[purchase.Purchase](),
		func() *purchase.Purchase { return &purchase.Purchase{} },
	)
	base.WithSearch("supplier_ncf", "supplier_name", "supplier_tax_id")
	return &PurchaseRepo{BaseDocumentRepo: base}
}

// Create inserts a purchase. A supplier NCF can be recorded once per supplier.
func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	if err := r.BaseRepo.Create(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err, "purchases_owner_id_supplier_tax_id_supplier_ncf_key") {
			return apperror.NewDuplicate("purchase", "supplierNcf", p.SupplierNCF)
		}
		return err
	}
	return nil
}

// List retrieves purchases with filtering.
func (r *PurchaseRepo) List(ctx context.Context, ownerID id.ID, filter domain.ListFilter) (domain.ListResult[*purchase.Purchase], error) {
	return r.BaseRepo.List(ctx, ownerID, filter, nil)
}

// ListForPeriod returns purchases dated in [from, to).
func (r *PurchaseRepo) ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*purchase.Purchase, error) {
	q := r.Select(ownerID).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		OrderBy("date", "supplier_ncf")
	return r.FindAll(ctx, q)
}

var _ purchase.Repository = (*PurchaseRepo)(nil)
