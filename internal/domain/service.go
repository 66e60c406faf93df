// Package domain provides business logic interfaces and types shared by the
// domain packages.
package domain

import (
	"context"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
)

// Event is a domain event written to the outbox in the transaction that produced it.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	OwnerID       id.ID
	Type          string
	Payload       any
}

// Event types.
const (
	EventInvoiceIssued         = "invoice.issued"
	EventCreditNoteIssued      = "credit_note.issued"
	EventDocumentStatusChanged = "document.status_changed"
	EventBatchCreated          = "batch.created"
	EventBatchDeactivated      = "batch.deactivated"
	EventSubscriptionChanged   = "subscription.changed"
)

// EventPublisher stores events for asynchronous delivery.
// Publish must be called inside a transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// OwnerFromContext returns the authenticated owner or an unauthorized error.
func OwnerFromContext(ctx context.Context) (id.ID, error) {
	raw := appctx.GetOwnerID(ctx)
	if raw == "" {
		return id.Nil(), apperror.NewUnauthorized("authentication required")
	}
	ownerID, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewUnauthorized("invalid session").WithCause(err)
	}
	return ownerID, nil
}

// NormalizeGetErr maps repository errors for a lookup by key.
func NormalizeGetErr(err error, entityName string, key any) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entityName, key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entityName).WithDetail("id", key)
}
