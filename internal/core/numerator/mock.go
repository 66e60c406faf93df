package numerator

import (
	"context"

	"facturard/internal/core/id"
)

// MockAllocator is a test implementation of Allocator.
// Use in unit tests to avoid database dependencies.
type MockAllocator struct {
	AllocateFunc func(ctx context.Context, ownerID id.ID, docType DocumentType) (Allocation, error)
	Calls        int
}

// Allocate implements Allocator.
func (m *MockAllocator) Allocate(ctx context.Context, ownerID id.ID, docType DocumentType) (Allocation, error) {
	m.Calls++
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx, ownerID, docType)
	}
	series, _ := SeriesOf(docType)
	return Allocation{Series: series, DocumentType: docType, Number: int64(m.Calls)}, nil
}

// Ensure compile-time interface compliance.
var _ Allocator = (*MockAllocator)(nil)
