package batches

import (
	"context"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/core/tx"
	"facturard/internal/domain"
	"facturard/internal/domain/audit"
	"facturard/pkg/logger"
)

const entityName = "ncf_batch"

// Service provides batch configuration operations.
type Service struct {
	repo      Repository
	txManager tx.Manager
	events    domain.EventPublisher
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new batch service.
func NewService(repo Repository, txManager tx.Manager, events domain.EventPublisher, recorder audit.Recorder) *Service {
	if events == nil {
		events = domain.NopPublisher{}
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		events:    events,
		audit:     recorder,
		now:       time.Now,
	}
}

// Create registers a new range for the owner in ctx and retires the previous
// active range of the same type and series in the same transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Batch, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.CreateFor(ctx, ownerID, req)
}

// CreateFor is Create for an explicit owner. Used by the CLI and seeding.
func (s *Service) CreateFor(ctx context.Context, ownerID id.ID, req CreateRequest) (*Batch, error) {
	b := NewBatch(ownerID, req.Series, req.DocumentType, req.RangeStart, req.RangeEnd, req.ExpiresAt)
	if err := b.Validate(ctx, s.now()); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		replaced, err := s.repo.DeactivateActive(ctx, ownerID, b.DocumentType, b.Series)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}

		for _, oldID := range replaced {
			if err := s.audit.Record(ctx, entityName, oldID, audit.ActionDeactivate,
				map[string]any{"replaced_by": b.ID}); err != nil {
				return err
			}
		}
		if err := s.audit.Record(ctx, entityName, b.ID, audit.ActionCreate, map[string]any{"after": b}); err != nil {
			return err
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: entityName,
			AggregateID:   b.ID,
			OwnerID:       ownerID,
			Type:          domain.EventBatchCreated,
			Payload: map[string]any{
				"document_type": b.DocumentType,
				"series":        b.Series,
				"range_start":   b.RangeStart,
				"range_end":     b.RangeEnd,
				"replaced":      replaced,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ncf batch created",
		"batch_id", b.ID,
		"document_type", b.DocumentType,
		"series", b.Series,
		"range_start", b.RangeStart,
		"range_end", b.RangeEnd)

	return b, nil
}

// Get returns one batch of the owner in ctx.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*Batch, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetByID(ctx, ownerID, batchID)
	if err != nil {
		return nil, domain.NormalizeGetErr(err, entityName, batchID)
	}
	return b, nil
}

// List returns the owner's batches, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Batch, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListFor(ctx, ownerID, filter)
}

// ListFor is List for an explicit owner.
func (s *Service) ListFor(ctx context.Context, ownerID id.ID, filter Filter) ([]*Batch, error) {
	if filter.DocumentType != "" {
		if _, ok := numerator.SeriesOf(filter.DocumentType); !ok {
			return nil, apperror.NewValidation("unknown document type").WithDetail("field", "documentType")
		}
	}
	return s.repo.List(ctx, ownerID, filter)
}

// Deactivate retires a batch. Its remaining numbers are never issued.
func (s *Service) Deactivate(ctx context.Context, batchID id.ID) (*Batch, error) {
	ownerID, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var b *Batch
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, ownerID, batchID)
		if err != nil {
			return domain.NormalizeGetErr(err, entityName, batchID)
		}
		if !current.IsActive {
			b = current
			return nil
		}
		if err := s.repo.Deactivate(ctx, ownerID, batchID); err != nil {
			return err
		}
		now := s.now().UTC()
		current.IsActive = false
		current.DeactivatedAt = &now
		b = current

		if err := s.audit.Record(ctx, entityName, batchID, audit.ActionDeactivate, nil); err != nil {
			return err
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: entityName,
			AggregateID:   batchID,
			OwnerID:       ownerID,
			Type:          domain.EventBatchDeactivated,
			Payload:       map[string]any{"document_type": current.DocumentType, "cursor": current.Cursor},
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LowStock returns active batches across all owners with at most threshold numbers left.
func (s *Service) LowStock(ctx context.Context, threshold int64) ([]*Batch, error) {
	return s.repo.ListLowStock(ctx, threshold)
}
