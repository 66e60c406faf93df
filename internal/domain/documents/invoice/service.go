package invoice

import (
	"context"
	"strings"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/entity"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/taxid"
	"facturard/internal/core/tx"
	"facturard/internal/domain"
	"facturard/internal/domain/audit"
	"facturard/internal/domain/customers"
	"facturard/pkg/logger"
)

const entityName = "fiscal_document"

// CustomerStore is the part of the customer catalog used during issuance.
type CustomerStore interface {
	Upsert(ctx context.Context, ownerID id.ID, rawTaxID, name string) (*customers.Customer, error)
	TouchLastInvoice(ctx context.Context, ownerID, customerID id.ID, at time.Time) error
}

// QuotaChecker decides whether the owner may issue another document.
type QuotaChecker interface {
	CheckIssuance(ctx context.Context, ownerID id.ID) error
}

// Config holds issuance policy.
type Config struct {
	// EnforceExpiry rejects numbers drawn from a batch past its expiry date.
	EnforceExpiry bool
}

// Service issues fiscal documents and manages their status.
type Service struct {
	repo      Repository
	allocator numerator.Allocator
	customers CustomerStore
	quota     QuotaChecker
	txManager tx.Manager
	events    domain.EventPublisher
	audit     audit.Recorder
	hooks     *domain.HookRegistry[*Document]
	cfg       Config
	now       func() time.Time
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Allocator numerator.Allocator
	Customers CustomerStore
	Quota     QuotaChecker
	TxManager tx.Manager
	Events    domain.EventPublisher
	Audit     audit.Recorder
}

// NewService creates the issuance service. Quota, Events and Audit are optional.
func NewService(deps Deps, cfg Config) *Service {
	svc := &Service{
		repo:      deps.Repo,
		allocator: deps.Allocator,
		customers: deps.Customers,
		quota:     deps.Quota,
		txManager: deps.TxManager,
		events:    deps.Events,
		audit:     deps.Audit,
		hooks:     domain.NewHookRegistry[*Document](),
		cfg:       cfg,
		now:       time.Now,
	}
	if svc.events == nil {
		svc.events = domain.NopPublisher{}
	}
	if svc.audit == nil {
		svc.audit = audit.Nop{}
	}
	return svc
}

// Hooks exposes lifecycle hooks. AfterCreate hooks run after commit and
// their errors are logged, not returned.
func (s *Service) Hooks() *domain.HookRegistry[*Document] {
	return s.hooks
}

// IssueInvoice allocates the next NCF of the requested type and stores the
// invoice with it. Customer upsert, allocation and insert share one transaction.
func (s *Service) IssueInvoice(ctx context.Context, req IssueInvoiceRequest) (*Document, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	series, ok := numerator.SeriesOf(req.DocumentType)
	if !ok {
		return nil, apperror.NewValidation("unknown document type").WithDetail("field", "documentType")
	}
	if req.DocumentType.IsCreditNote() {
		return nil, apperror.NewValidation("credit notes are issued against an existing document").
			WithDetail("field", "documentType")
	}

	taxID := taxid.Normalize(req.CustomerTaxID)
	if taxID != "" && !taxid.Validate(taxID) {
		return nil, apperror.NewInvalidTaxID("customerTaxId")
	}
	if taxID == "" && req.DocumentType.RequiresBuyerTaxID() {
		return nil, apperror.NewValidation("customer tax ID is required for this document type").
			WithDetail("field", "customerTaxId")
	}
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	doc := &Document{
		Document:      entity.NewDocument(ownerID),
		CurrencyAware: entity.CurrencyAware{Currency: strings.ToUpper(strings.TrimSpace(req.Currency))},
		Kind:          KindInvoice,
		DocumentType:  req.DocumentType,
		Series:        series,
		CustomerTaxID: taxID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		DueDate:       req.DueDate,
		Status:        StatusPending,
	}
	doc.Comment = strings.TrimSpace(req.Comment)
	if !req.Date.IsZero() {
		doc.Date = req.Date.UTC()
	}
	doc.SetLines(req.Lines)
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	if s.quota != nil {
		if err := s.quota.CheckIssuance(ctx, ownerID); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var customer *customers.Customer
		if taxID != "" {
			c, err := s.customers.Upsert(ctx, ownerID, taxID, doc.CustomerName)
			if err != nil {
				return err
			}
			customer = c
			doc.CustomerID = &c.ID
			doc.CustomerName = c.Name
		}

		if err := s.assignSequence(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return err
		}
		if customer != nil {
			if err := s.customers.TouchLastInvoice(ctx, ownerID, customer.ID, doc.CreatedAt); err != nil {
				return err
			}
		}

		if err := s.audit.Record(ctx, entityName, doc.ID, audit.ActionIssue, map[string]any{"after": doc}); err != nil {
			return err
		}
		return s.events.Publish(ctx, issuedEvent(domain.EventInvoiceIssued, doc))
	})
	if err != nil {
		return nil, err
	}

	s.afterIssue(ctx, doc)
	return doc, nil
}

// IssueCreditNote annuls an invoice. The original is locked, checked for an
// existing credit note before any number is drawn, then marked modified and
// linked to the new credit note in the same transaction.
func (s *Service) IssueCreditNote(ctx context.Context, req IssueCreditNoteRequest) (*Document, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.NewValidation("modification reason is required").WithDetail("field", "reason")
	}
	if len(req.Lines) > 0 {
		if err := validateLines(req.Lines); err != nil {
			return nil, err
		}
	}

	var note *Document
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		orig, err := s.repo.GetForUpdate(ctx, ownerID, req.OriginalID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, req.OriginalID)
		}

		switch {
		case orig.Kind == KindCreditNote:
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "A credit note cannot be annulled").
				WithDetail("document", orig.SequenceIdentifier)
		case orig.Status == StatusModified:
			return apperror.NewAlreadyAnnulled(orig.SequenceIdentifier, orig.RelatedDocument)
		case !orig.Status.CanTransitionTo(StatusModified):
			return apperror.NewInvalidStatusTransition(string(orig.Status), string(StatusModified))
		}

		lines, err := s.repo.GetLines(ctx, orig.ID)
		if err != nil {
			return err
		}
		orig.Lines = lines

		note = &Document{
			Document:           entity.NewDocument(ownerID),
			CurrencyAware:      orig.CurrencyAware,
			Kind:               KindCreditNote,
			DocumentType:       orig.Series.CreditNoteType(),
			Series:             orig.Series,
			CustomerID:         orig.CustomerID,
			CustomerTaxID:      orig.CustomerTaxID,
			CustomerName:       orig.CustomerName,
			Status:             StatusPending,
			RelatedDocument:    orig.SequenceIdentifier,
			ModificationReason: reason,
		}
		if !req.Date.IsZero() {
			note.Date = req.Date.UTC()
		}
		if len(req.Lines) == 0 {
			note.SetLines(orig.Inputs())
		} else {
			note.SetLines(req.Lines)
			if note.Total.GreaterThan(orig.Total) {
				return apperror.NewValidation("credit note total exceeds the original document").
					WithDetail("original_total", orig.Total.StringFixed(2)).
					WithDetail("total", note.Total.StringFixed(2))
			}
		}
		if err := note.Validate(ctx); err != nil {
			return err
		}

		if err := s.assignSequence(ctx, note); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, note); err != nil {
			return err
		}

		if err := orig.transition(StatusModified, s.now().UTC()); err != nil {
			return err
		}
		orig.RelatedDocument = note.SequenceIdentifier
		if err := s.repo.UpdateStatus(ctx, orig); err != nil {
			return err
		}

		if err := s.audit.Record(ctx, entityName, note.ID, audit.ActionIssue, map[string]any{"after": note}); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, entityName, orig.ID, audit.ActionAnnul,
			map[string]any{"credit_note": note.SequenceIdentifier, "reason": reason}); err != nil {
			return err
		}
		return s.events.Publish(ctx, issuedEvent(domain.EventCreditNoteIssued, note))
	})
	if err != nil {
		return nil, err
	}

	s.afterIssue(ctx, note)
	return note, nil
}

// MarkPaid moves a pending invoice to paid.
func (s *Service) MarkPaid(ctx context.Context, docID id.ID) (*Document, error) {
	return s.changeStatus(ctx, docID, StatusPaid)
}

// Cancel voids a document. Its NCF stays consumed.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*Document, error) {
	return s.changeStatus(ctx, docID, StatusCancelled)
}

func (s *Service) changeStatus(ctx context.Context, docID id.ID, next Status) (*Document, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var doc *Document
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, ownerID, docID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, docID)
		}
		if current.Kind == KindCreditNote {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Credit note status cannot be changed").
				WithDetail("document", current.SequenceIdentifier)
		}
		from := current.Status
		if err := current.transition(next, s.now().UTC()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, current); err != nil {
			return err
		}
		doc = current

		if err := s.audit.Record(ctx, entityName, docID, audit.ActionStatus,
			map[string]any{"from": from, "to": next}); err != nil {
			return err
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: entityName,
			AggregateID:   docID,
			OwnerID:       ownerID,
			Type:          domain.EventDocumentStatusChanged,
			Payload: map[string]any{
				"sequence_identifier": current.SequenceIdentifier,
				"from":                from,
				"to":                  next,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "document status changed", "document_id", docID, "status", next)
	return doc, nil
}

// Get returns a document with its lines.
func (s *Service) Get(ctx context.Context, docID id.ID) (*Document, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.GetByID(ctx, ownerID, docID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, docID)
	}
	return s.withLines(ctx, doc)
}

// GetBySequence returns a document by its NCF.
func (s *Service) GetBySequence(ctx context.Context, sequenceIdentifier string) (*Document, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ident := strings.ToUpper(strings.TrimSpace(sequenceIdentifier))
	if _, err := numerator.Parse(ident); err != nil {
		return nil, apperror.NewValidation("malformed NCF").WithDetail("value", sequenceIdentifier)
	}
	doc, err := s.repo.GetBySequence(ctx, ownerID, ident)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, ident)
	}
	return s.withLines(ctx, doc)
}

// List returns a page of documents without lines.
func (s *Service) List(ctx context.Context, base domain.ListFilter, filter ListFilter) (domain.ListResult[*Document], error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return domain.ListResult[*Document]{}, err
	}
	if base.Status != "" && !Status(base.Status).IsValid() {
		return domain.ListResult[*Document]{}, apperror.NewValidation("unknown status").WithDetail("field", "status")
	}
	switch filter.Kind {
	case "", KindInvoice, KindCreditNote:
	default:
		return domain.ListResult[*Document]{}, apperror.NewValidation("unknown kind").WithDetail("field", "kind")
	}
	base.Normalize()
	return s.repo.List(ctx, ownerID, base, filter)
}

func (s *Service) withLines(ctx context.Context, doc *Document) (*Document, error) {
	lines, err := s.repo.GetLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Lines = lines
	return doc, nil
}

// assignSequence draws the next number for doc.DocumentType inside the
// current transaction and applies the expiry policy.
func (s *Service) assignSequence(ctx context.Context, doc *Document) error {
	alloc, err := s.allocator.Allocate(ctx, doc.OwnerID, doc.DocumentType)
	if err != nil {
		return err
	}
	if s.cfg.EnforceExpiry && alloc.ExpiredAt(s.now()) {
		return apperror.NewBatchExpired(alloc.BatchID, alloc.ExpiresAt.Format(time.DateOnly))
	}
	doc.SequenceIdentifier = alloc.Identifier()
	doc.BatchID = alloc.BatchID
	doc.Series = alloc.Series
	return nil
}

func (s *Service) afterIssue(ctx context.Context, doc *Document) {
	if err := s.hooks.Run(ctx, domain.AfterCreate, doc); err != nil {
		logger.Warn(ctx, "after-issue hook failed", "document_id", doc.ID, "error", err)
	}
	logger.Info(ctx, "fiscal document issued",
		"document_id", doc.ID,
		"kind", doc.Kind,
		"ncf", doc.SequenceIdentifier,
		"related", doc.RelatedDocument,
		"total", doc.Total.StringFixed(2))
}

func issuedEvent(eventType string, doc *Document) domain.Event {
	return domain.Event{
		AggregateType: entityName,
		AggregateID:   doc.ID,
		OwnerID:       doc.OwnerID,
		Type:          eventType,
		Payload: map[string]any{
			"sequence_identifier": doc.SequenceIdentifier,
			"document_type":       doc.DocumentType,
			"related_document":    doc.RelatedDocument,
			"customer_tax_id":     doc.CustomerTaxID,
			"total":               doc.Total.StringFixed(2),
			"currency":            doc.Currency,
		},
	}
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, l := range lines {
		if err := l.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
