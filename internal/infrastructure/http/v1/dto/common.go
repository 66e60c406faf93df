// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"facturard/internal/core/id"
	"facturard/internal/domain"
)

// --- Dates ---

const dateLayout = "2006-01-02"

// Date is a calendar date in JSON. Accepts "2006-01-02" or RFC 3339 and
// always renders "2006-01-02".
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

// Ptr returns nil for a zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// DateOf wraps a time for rendering.
func DateOf(t time.Time) Date {
	return Date{Time: t}
}

// DatePtr wraps an optional time for rendering.
func DatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// --- Lists ---

// ListQuery holds the common list query parameters.
type ListQuery struct {
	Search   string     `form:"search"`
	Status   string     `form:"status"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
	OrderBy  string     `form:"orderBy"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
	Deleted  bool       `form:"includeDeleted"`
}

// ToFilter converts to the domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.Status = q.Status
	f.DateFrom = q.DateFrom
	f.DateTo = q.DateTo
	f.IncludeDeleted = q.Deleted
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	f.Limit = q.Limit
	f.Offset = q.Offset
	f.Normalize()
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MapList converts a domain list result with fn.
func MapList[S, T any](r domain.ListResult[S], fn func(S) T) ListResponse[T] {
	return ListResponse[T]{
		Items:      lo.Map(r.Items, func(item S, _ int) T { return fn(item) }),
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// ItemsResponse wraps an unpaged list.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// ErrorResponse documents the error body written by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
