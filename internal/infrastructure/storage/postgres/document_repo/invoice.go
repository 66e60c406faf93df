package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/infrastructure/storage/postgres"
)

const (
	fiscalDocumentsTable = "fiscal_documents"
	fiscalLinesTable     = "fiscal_document_lines"

	// NCFs are unique across all accounts.
	sequenceIdentifierKey = "fiscal_documents_sequence_identifier_key"
)

var fiscalLineColumns = []string{
	"id", "document_id", "line_no", "description",
	"quantity", "unit_price", "tax_rate", "tax_amount", "amount",
}

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Document]
}

// NewInvoiceRepo creates a new fiscal document repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	base := NewBaseDocumentRepo(txManager, fiscalDocumentsTable,
		postgres.ExtractDBColumns[invoice.Document](),
		func() *invoice.Document { return &invoice.Document{} },
	)
	base.WithSearch("sequence_identifier", "customer_name", "customer_tax_id")
	return &InvoiceRepo{BaseDocumentRepo: base}
}

// Create inserts the header then its lines with COPY.
func (r *InvoiceRepo) Create(ctx context.Context, doc *invoice.Document) error {
	if err := r.BaseRepo.Create(ctx, doc); err != nil {
		return postgres.MapUniqueViolation(err, sequenceIdentifierKey,
			fiscalDocumentsTable, "sequence_identifier", doc.SequenceIdentifier)
	}
	rows := lo.Map(doc.Lines, func(l invoice.Line, _ int) []any {
		return []any{
			l.ID, doc.ID, l.LineNo, l.Description,
			postgres.Numeric(l.Quantity), postgres.Numeric(l.UnitPrice), postgres.Numeric(l.TaxRate),
			postgres.Numeric(l.TaxAmount), postgres.Numeric(l.Amount),
		}
	})
	return r.CopyLines(ctx, fiscalLinesTable, fiscalLineColumns, rows)
}

// GetBySequence retrieves a document by NCF.
func (r *InvoiceRepo) GetBySequence(ctx context.Context, ownerID id.ID, sequenceIdentifier string) (*invoice.Document, error) {
	q := r.Select(ownerID).Where(squirrel.Eq{"sequence_identifier": sequenceIdentifier}).Limit(1)
	return r.FindOne(ctx, q, sequenceIdentifier)
}

// GetLines retrieves the lines of a document.
func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]invoice.Line, error) {
	return SelectLines[invoice.Line](ctx, r.Querier(ctx), fiscalLinesTable, fiscalLineColumns, docID)
}

// UpdateStatus writes the lifecycle columns. sequence_identifier is never updated.
func (r *InvoiceRepo) UpdateStatus(ctx context.Context, doc *invoice.Document) error {
	err := r.UpdateFields(ctx, doc.OwnerID, doc.ID, doc.Version, map[string]any{
		"status":           doc.Status,
		"related_document": doc.RelatedDocument,
		"paid_at":          doc.PaidAt,
		"cancelled_at":     doc.CancelledAt,
	})
	if err != nil {
		return err
	}
	doc.Version++
	return nil
}

// List retrieves documents with filtering.
func (r *InvoiceRepo) List(ctx context.Context, ownerID id.ID, base domain.ListFilter, filter invoice.ListFilter) (domain.ListResult[*invoice.Document], error) {
	return r.BaseRepo.List(ctx, ownerID, base, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Kind != "" {
			q = q.Where(squirrel.Eq{"kind": filter.Kind})
		}
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
		return q
	})
}

// ListForPeriod returns documents dated in [from, to) ordered by NCF.
func (r *InvoiceRepo) ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*invoice.Document, error) {
	q := r.Select(ownerID).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Lt{"date": to}).
		OrderBy("date", "sequence_identifier")
	return r.FindAll(ctx, q)
}

// CountSince counts documents created at or after since, cancelled ones included.
func (r *InvoiceRepo) CountSince(ctx context.Context, ownerID id.ID, since time.Time) (int, error) {
	sql, args, err := r.Builder().
		Select("COUNT(*)").
		From(fiscalDocumentsTable).
		Where(squirrel.Eq{"owner_id": ownerID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

var _ invoice.Repository = (*InvoiceRepo)(nil)
