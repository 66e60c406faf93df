package numerator

import (
	"context"
	"sync"
	"time"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
)

// MemoryBatch is a numbering range held by MemoryAllocator.
type MemoryBatch struct {
	ID         id.ID
	OwnerID    id.ID
	Series     Series
	Type       DocumentType
	RangeStart int64
	RangeEnd   int64
	Cursor     int64
	ExpiresAt  time.Time
	Active     bool
}

// MemoryAllocator keeps batches in memory and applies the same conditional
// increment as the database allocator under a mutex. It is meant for tests
// and local tooling; it does not take part in transactions.
type MemoryAllocator struct {
	mu      sync.Mutex
	batches []*MemoryBatch
}

// NewMemoryAllocator creates an empty allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{}
}

// Add registers a batch. Like batch creation, it deactivates earlier active
// batches of the same owner, type and series. Cursor defaults to RangeStart-1.
func (m *MemoryAllocator) Add(b MemoryBatch) *MemoryBatch {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id.IsNil(b.ID) {
		b.ID = id.New()
	}
	if b.Cursor == 0 {
		b.Cursor = b.RangeStart - 1
	}
	b.Active = true
	for _, prev := range m.batches {
		if prev.OwnerID == b.OwnerID && prev.Type == b.Type && prev.Series == b.Series {
			prev.Active = false
		}
	}
	m.batches = append(m.batches, &b)
	return &b
}

// Deactivate marks a batch inactive.
func (m *MemoryAllocator) Deactivate(batchID id.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == batchID {
			b.Active = false
		}
	}
}

// Cursor returns the current cursor of a batch.
func (m *MemoryAllocator) Cursor(batchID id.ID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ID == batchID {
			return b.Cursor
		}
	}
	return 0
}

// Allocate implements Allocator. The newest matching batch wins.
func (m *MemoryAllocator) Allocate(ctx context.Context, ownerID id.ID, docType DocumentType) (Allocation, error) {
	if err := ctx.Err(); err != nil {
		return Allocation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.batches) - 1; i >= 0; i-- {
		b := m.batches[i]
		if b.OwnerID != ownerID || b.Type != docType || !b.Active || b.Cursor >= b.RangeEnd {
			continue
		}
		b.Cursor++
		return Allocation{
			BatchID:      b.ID,
			Series:       b.Series,
			DocumentType: b.Type,
			Number:       b.Cursor,
			ExpiresAt:    b.ExpiresAt,
		}, nil
	}
	return Allocation{}, apperror.NewNoSequenceAvailable(string(docType))
}

var _ Allocator = (*MemoryAllocator)(nil)
