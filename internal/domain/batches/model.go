// Package batches manages the NCF ranges authorized by DGII for an account.
//
// A batch is never deleted. Creating a batch for an (owner, type, series)
// that already has an active one deactivates the old batch; its cursor stays
// where it was. Only the allocator moves the cursor.
package batches

import (
	"context"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
)

// Batch is one authorized numbering range.
type Batch struct {
	ID            id.ID                  `db:"id" json:"id"`
	OwnerID       id.ID                  `db:"owner_id" json:"ownerId"`
	DocumentType  numerator.DocumentType `db:"document_type" json:"documentType"`
	Series        numerator.Series       `db:"series_prefix" json:"seriesPrefix"`
	RangeStart    int64                  `db:"range_start" json:"rangeStart"`
	RangeEnd      int64                  `db:"range_end" json:"rangeEnd"`
	Cursor        int64                  `db:"cursor" json:"cursor"`
	ExpiresAt     *time.Time             `db:"expires_at" json:"expiresAt,omitempty"`
	IsActive      bool                   `db:"is_active" json:"isActive"`
	DeactivatedAt *time.Time             `db:"deactivated_at" json:"deactivatedAt,omitempty"`
	CreatedAt     time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time              `db:"updated_at" json:"updatedAt"`
}

// NewBatch creates an active batch whose cursor sits just before RangeStart.
func NewBatch(ownerID id.ID, series numerator.Series, docType numerator.DocumentType, start, end int64, expiresAt *time.Time) *Batch {
	now := time.Now().UTC()
	return &Batch{
		ID:           id.New(),
		OwnerID:      ownerID,
		DocumentType: docType,
		Series:       series,
		RangeStart:   start,
		RangeEnd:     end,
		Cursor:       start - 1,
		ExpiresAt:    expiresAt,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the range and series rules. now is the reference for expiry.
func (b *Batch) Validate(ctx context.Context, now time.Time) error {
	if !b.Series.IsValid() {
		return apperror.NewValidation("series must be E or B").
			WithDetail("field", "seriesPrefix").
			WithDetail("value", string(b.Series))
	}
	if !b.DocumentType.ValidFor(b.Series) {
		return apperror.NewValidation("document type does not belong to series").
			WithDetail("field", "documentType").
			WithDetail("value", string(b.DocumentType)).
			WithDetail("series", string(b.Series))
	}
	if b.RangeStart < 1 {
		return apperror.NewValidation("range start must be positive").WithDetail("field", "rangeStart")
	}
	if b.RangeEnd < b.RangeStart {
		return apperror.NewValidation("range end must not be below range start").WithDetail("field", "rangeEnd")
	}
	if limit := maxNumber(b.Series); b.RangeEnd > limit {
		return apperror.NewValidation("range end exceeds the series digit count").
			WithDetail("field", "rangeEnd").
			WithDetail("max", limit)
	}
	if b.ExpiresAt != nil && !b.ExpiresAt.After(now) {
		return apperror.NewValidation("expiry date must be in the future").WithDetail("field", "expiresAt")
	}
	return nil
}

func maxNumber(s numerator.Series) int64 {
	n := int64(1)
	for i := 0; i < s.PadWidth(); i++ {
		n *= 10
	}
	return n - 1
}

// Remaining returns how many numbers are left.
func (b *Batch) Remaining() int64 {
	return b.RangeEnd - b.Cursor
}

// Issued returns how many numbers were handed out.
func (b *Batch) Issued() int64 {
	return b.Cursor - (b.RangeStart - 1)
}

// Exhausted reports whether every number was used.
func (b *Batch) Exhausted() bool {
	return b.Cursor >= b.RangeEnd
}

// Expired reports whether the batch is past its expiry date at t.
func (b *Batch) Expired(t time.Time) bool {
	return b.ExpiresAt != nil && t.After(*b.ExpiresAt)
}

// NextIdentifier previews the NCF the next allocation would return.
// Empty when the batch is exhausted.
func (b *Batch) NextIdentifier() string {
	if b.Exhausted() {
		return ""
	}
	return numerator.Render(b.Series, b.DocumentType, b.Cursor+1)
}

// CreateRequest holds the user input for a new batch.
type CreateRequest struct {
	DocumentType numerator.DocumentType
	Series       numerator.Series
	RangeStart   int64
	RangeEnd     int64
	ExpiresAt    *time.Time
}

// Filter narrows batch listings.
type Filter struct {
	DocumentType numerator.DocumentType
	ActiveOnly   bool
}
