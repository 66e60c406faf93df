package dto

import (
	"strings"
	"time"

	"facturard/internal/core/numerator"
	"facturard/internal/domain/batches"
)

// CreateBatchRequest registers a numbering range authorized by DGII.
type CreateBatchRequest struct {
	DocumentType string `json:"documentType" binding:"required,len=2,numeric"`
	SeriesPrefix string `json:"seriesPrefix" binding:"required,oneof=E B e b"`
	RangeStart   int64  `json:"rangeStart" binding:"required,min=1"`
	RangeEnd     int64  `json:"rangeEnd" binding:"required,min=1"`
	ExpiresAt    *Date  `json:"expiresAt"`
}

// ToCreateRequest converts to the domain request.
func (r *CreateBatchRequest) ToCreateRequest() batches.CreateRequest {
	return batches.CreateRequest{
		DocumentType: numerator.DocumentType(r.DocumentType),
		Series:       numerator.Series(strings.ToUpper(r.SeriesPrefix)),
		RangeStart:   r.RangeStart,
		RangeEnd:     r.RangeEnd,
		ExpiresAt:    r.ExpiresAt.Ptr(),
	}
}

// BatchQuery filters batch listings.
type BatchQuery struct {
	DocumentType string `form:"documentType"`
	ActiveOnly   bool   `form:"activeOnly"`
}

// ToFilter converts to the domain filter.
func (q BatchQuery) ToFilter() batches.Filter {
	return batches.Filter{
		DocumentType: numerator.DocumentType(q.DocumentType),
		ActiveOnly:   q.ActiveOnly,
	}
}

// BatchResponse is a numbering batch with its usage.
type BatchResponse struct {
	ID             string     `json:"id"`
	DocumentType   string     `json:"documentType"`
	Description    string     `json:"description"`
	SeriesPrefix   string     `json:"seriesPrefix"`
	RangeStart     int64      `json:"rangeStart"`
	RangeEnd       int64      `json:"rangeEnd"`
	Cursor         int64      `json:"cursor"`
	Issued         int64      `json:"issued"`
	Remaining      int64      `json:"remaining"`
	NextIdentifier string     `json:"nextIdentifier,omitempty"`
	ExpiresAt      *Date      `json:"expiresAt,omitempty"`
	Expired        bool       `json:"expired"`
	IsActive       bool       `json:"isActive"`
	DeactivatedAt  *time.Time `json:"deactivatedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// FromBatch creates a response from the domain entity.
func FromBatch(b *batches.Batch) BatchResponse {
	return BatchResponse{
		ID:             b.ID.String(),
		DocumentType:   string(b.DocumentType),
		Description:    b.DocumentType.Description(b.Series),
		SeriesPrefix:   string(b.Series),
		RangeStart:     b.RangeStart,
		RangeEnd:       b.RangeEnd,
		Cursor:         b.Cursor,
		Issued:         b.Issued(),
		Remaining:      b.Remaining(),
		NextIdentifier: b.NextIdentifier(),
		ExpiresAt:      DatePtr(b.ExpiresAt),
		Expired:        b.Expired(time.Now()),
		IsActive:       b.IsActive,
		DeactivatedAt:  b.DeactivatedAt,
		CreatedAt:      b.CreatedAt,
	}
}
