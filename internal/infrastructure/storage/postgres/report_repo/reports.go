// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facturard/internal/core/id"
	"facturard/internal/domain/reports"
	"facturard/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	qp      postgres.QuerierProvider
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(qp postgres.QuerierProvider) *ReportRepo {
	return &ReportRepo{
		qp:      qp,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// DocumentTypeSummary returns document counts and totals by type. Cancelled
// documents are counted separately and left out of the amounts.
func (r *ReportRepo) DocumentTypeSummary(ctx context.Context, ownerID id.ID, from, to time.Time) ([]reports.DocumentTypeSummary, error) {
	q := r.builder.
		Select(
			"document_type",
			"COUNT(*) AS count",
			"COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_count",
			"COALESCE(SUM(subtotal) FILTER (WHERE status <> 'cancelled'), 0) AS subtotal",
			"COALESCE(SUM(tax_total) FILTER (WHERE status <> 'cancelled'), 0) AS tax_total",
			"COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0) AS total",
		).
		From("fiscal_documents").
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		GroupBy("document_type").
		OrderBy("document_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	result := []reports.DocumentTypeSummary{}
	if err := pgxscan.Select(ctx, r.qp.GetQuerier(ctx), &result, sql, args...); err != nil {
		return nil, fmt.Errorf("document type summary: %w", err)
	}
	return result, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
