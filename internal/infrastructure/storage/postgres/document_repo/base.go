// Package document_repo provides PostgreSQL implementations for fiscal and
// purchase document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/infrastructure/storage/postgres"
	"facturard/internal/infrastructure/storage/postgres/catalog_repo"
)

// BaseDocumentRepo adds document concerns to the owner-scoped base repository:
// header status updates and line tables written with COPY.
type BaseDocumentRepo[T any] struct {
	*catalog_repo.BaseRepo[T]
	inserter  *postgres.BatchInserter
	tableName string
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		BaseRepo: catalog_repo.NewBaseRepo(txManager, tableName, selectCols, newFn).
			WithDefaultOrder("date DESC, created_at DESC"),
		inserter:  postgres.NewBatchInserter(txManager),
		tableName: tableName,
	}
}

// UpdateFields sets the given columns on one header row with optimistic locking.
// The stored version must equal version; it is incremented.
func (r *BaseDocumentRepo[T]) UpdateFields(ctx context.Context, ownerID, docID id.ID, version int, fields map[string]any) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(fields).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": docID, "owner_id": ownerID, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err), r.tableName)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, docID)
	}
	return nil
}

// CopyLines bulk-inserts line rows. Must run inside the transaction that
// inserted the header.
func (r *BaseDocumentRepo[T]) CopyLines(ctx context.Context, table string, columns []string, rows [][]any) error {
	if _, err := r.inserter.CopyFromSlice(ctx, table, columns, rows); err != nil {
		return postgres.MapError(fmt.Errorf("copy %s: %w", table, err), table)
	}
	return nil
}

// SelectLines scans the lines of one document ordered by line_no.
func SelectLines[L any](ctx context.Context, q postgres.Querier, table string, columns []string, docID id.ID) ([]L, error) {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(columns...).
		From(table).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := []L{}
	if err := pgxscan.Select(ctx, q, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}
