package reports

import (
	"context"
	"time"

	"facturard/internal/core/id"
	"facturard/internal/domain/documents/invoice"
	"facturard/internal/domain/documents/purchase"
)

// Repository provides aggregated report data.
type Repository interface {
	// DocumentTypeSummary groups fiscal documents dated in [from, to) by type.
	DocumentTypeSummary(ctx context.Context, ownerID id.ID, from, to time.Time) ([]DocumentTypeSummary, error)
}

// DocumentSource lists issued documents for the 607.
type DocumentSource interface {
	ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*invoice.Document, error)
}

// PurchaseSource lists purchases for the 606.
type PurchaseSource interface {
	ListForPeriod(ctx context.Context, ownerID id.ID, from, to time.Time) ([]*purchase.Purchase, error)
}
