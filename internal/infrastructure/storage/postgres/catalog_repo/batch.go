package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/domain/batches"
	"facturard/internal/infrastructure/storage/postgres"
)

// BatchRepo implements batches.Repository. Cursor is written only on insert;
// allocation lives in infrastructure/numerator.
type BatchRepo struct {
	*BaseRepo[*batches.Batch]
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(qp postgres.QuerierProvider) *BatchRepo {
	base := NewBaseRepo(qp, "ncf_batches",
		postgres.ExtractDBColumns[batches.Batch](),
		func() *batches.Batch { return &batches.Batch{} },
	)
	return &BatchRepo{BaseRepo: base}
}

// Create inserts a batch.
func (r *BatchRepo) Create(ctx context.Context, b *batches.Batch) error {
	if err := r.BaseRepo.Create(ctx, b); err != nil {
		if postgres.IsUniqueViolation(err, "ncf_batches_one_active_key") {
			return apperror.NewConflict("an active batch already exists for this document type").
				WithDetail("document_type", string(b.DocumentType))
		}
		return err
	}
	return nil
}

// List returns batches newest first.
func (r *BatchRepo) List(ctx context.Context, ownerID id.ID, filter batches.Filter) ([]*batches.Batch, error) {
	q := r.Select(ownerID).OrderBy("created_at DESC")
	if filter.DocumentType != "" {
		q = q.Where(squirrel.Eq{"document_type": filter.DocumentType})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	return r.FindAll(ctx, q)
}

// DeactivateActive retires the active batches of (owner, type, series).
func (r *BatchRepo) DeactivateActive(
	ctx context.Context,
	ownerID id.ID,
	docType numerator.DocumentType,
	series numerator.Series,
) ([]id.ID, error) {
	sql, args, err := r.Builder().
		Update("ncf_batches").
		Set("is_active", false).
		Set("deactivated_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"owner_id":      ownerID,
			"document_type": string(docType),
			"series_prefix": string(series),
			"is_active":     true,
		}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build deactivate: %w", err)
	}

	var ids []id.ID
	if err := pgxscan.Select(ctx, r.Querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("deactivate batches: %w", err)
	}
	return ids, nil
}

// Deactivate retires one batch.
func (r *BatchRepo) Deactivate(ctx context.Context, ownerID, batchID id.ID) error {
	sql, args, err := r.Builder().
		Update("ncf_batches").
		Set("is_active", false).
		Set("deactivated_at", squirrel.Expr("COALESCE(deactivated_at, NOW())")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": batchID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deactivate batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("ncf_batches", batchID.String())
	}
	return nil
}

// ListLowStock scans all owners; used by the worker.
func (r *BatchRepo) ListLowStock(ctx context.Context, threshold int64) ([]*batches.Batch, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[batches.Batch]()...).
		From("ncf_batches").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Expr("range_end - cursor <= ?", threshold)).
		OrderBy("owner_id", "document_type")
	return r.FindAll(ctx, q)
}

var _ batches.Repository = (*BatchRepo)(nil)
