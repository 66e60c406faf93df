// Package numerator provides the PostgreSQL fiscal sequence allocator.
// It implements core/numerator.Allocator.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	corenumerator "facturard/internal/core/numerator"
	"facturard/internal/infrastructure/metrics"
	"facturard/internal/infrastructure/storage/postgres"
)

var tracer = otel.Tracer("facturard/numerator")

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierSource yields the querier bound to ctx (the open transaction, if any).
type QuerierSource func(ctx context.Context) Querier

// Static always returns q. Use for tests.
func Static(q Querier) QuerierSource {
	return func(context.Context) Querier { return q }
}

// FromProvider binds the allocator to the transaction manager's querier.
func FromProvider(qp postgres.QuerierProvider) QuerierSource {
	return func(ctx context.Context) Querier { return qp.GetQuerier(ctx) }
}

// allocateSQL reserves the next number in a single statement.
//
// The subquery picks the newest active batch that still has room and locks
// it; the outer predicate repeats the bound so that a concurrent caller that
// waited on the lock re-checks it against the committed cursor. Exhausted or
// inactive batches yield no row.
const allocateSQL = `
	UPDATE ncf_batches b
	SET cursor = b.cursor + 1, updated_at = NOW()
	WHERE b.id = (
		SELECT id FROM ncf_batches
		WHERE owner_id = $1 AND document_type = $2 AND is_active AND cursor < range_end
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	)
	AND b.is_active
	AND b.cursor < b.range_end
	RETURNING b.id, b.series_prefix, b.document_type, b.cursor, b.expires_at
`

// Service allocates NCF numbers from ncf_batches.
type Service struct {
	source QuerierSource
}

// Ensure compile-time interface compliance.
var _ corenumerator.Allocator = (*Service)(nil)

// New creates an allocator. Pass a source that returns the transaction in
// ctx so allocation commits or rolls back with the document insert.
func New(source QuerierSource) *Service {
	return &Service{source: source}
}

// Allocate implements corenumerator.Allocator.
func (s *Service) Allocate(ctx context.Context, ownerID id.ID, docType corenumerator.DocumentType) (corenumerator.Allocation, error) {
	if s == nil {
		return corenumerator.Allocation{}, fmt.Errorf("numerator service is not initialized")
	}

	ctx, span := tracer.Start(ctx, "ncf.allocate",
		trace.WithAttributes(attribute.String("ncf.document_type", string(docType))))
	defer span.End()

	var (
		a         corenumerator.Allocation
		series    string
		typ       string
		expiresAt *time.Time
	)
	err := s.source(ctx).
		QueryRow(ctx, allocateSQL, ownerID, string(docType)).
		Scan(&a.BatchID, &series, &typ, &a.Number, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetAttributes(attribute.Bool("ncf.exhausted", true))
		metrics.NCFAllocations.WithLabelValues(string(docType), metrics.ResultExhausted).Inc()
		return corenumerator.Allocation{}, apperror.NewNoSequenceAvailable(string(docType))
	}
	if err != nil {
		span.RecordError(err)
		metrics.NCFAllocations.WithLabelValues(string(docType), metrics.ResultError).Inc()
		return corenumerator.Allocation{}, fmt.Errorf("allocate ncf: %w", err)
	}

	a.Series = corenumerator.Series(series)
	a.DocumentType = corenumerator.DocumentType(typ)
	if expiresAt != nil {
		a.ExpiresAt = *expiresAt
	}
	span.SetAttributes(attribute.Int64("ncf.number", a.Number))
	metrics.NCFAllocations.WithLabelValues(string(docType), metrics.ResultOK).Inc()
	return a, nil
}
