package numerator

import (
	"context"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
)

// Allocation is one reserved sequence number.
type Allocation struct {
	BatchID      id.ID
	Series       Series
	DocumentType DocumentType
	Number       int64
	ExpiresAt    time.Time
}

// Identifier renders the allocated NCF.
func (a Allocation) Identifier() string {
	return Render(a.Series, a.DocumentType, a.Number)
}

// ExpiredAt reports whether the source batch had expired at t.
func (a Allocation) ExpiredAt(t time.Time) bool {
	return !a.ExpiresAt.IsZero() && t.After(a.ExpiresAt)
}

// Allocator reserves the next number of the owner's active batch.
//
// Allocate must run with the ctx of the transaction that persists the
// document, so a rollback also undoes the cursor increment. When no active
// batch has numbers left it returns an error matching ErrNoSequenceAvailable.
// Expiry is not checked here.
type Allocator interface {
	Allocate(ctx context.Context, ownerID id.ID, docType DocumentType) (Allocation, error)
}

// ErrNoSequenceAvailable is the sentinel for errors.Is checks.
var ErrNoSequenceAvailable = &apperror.AppError{Code: apperror.CodeNoSequenceAvailable}
