package entity

import (
	"context"
	"time"

	"facturard/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

/////////////////
// Base Entity //
/////////////////

// BaseEntity contains the fields shared by every owner-scoped row.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// OwnerID is the account the row belongs to.
	OwnerID id.ID `db:"owner_id" json:"ownerId"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID and timestamps.
func NewBaseEntity(ownerID id.ID) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		OwnerID:   ownerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// BelongsTo reports whether the row is owned by ownerID.
func (b *BaseEntity) BelongsTo(ownerID id.ID) bool {
	return b.OwnerID == ownerID
}

// SetVersion updates the version number (used by repository after sync).
func (b *BaseEntity) SetVersion(v int) {
	b.Version = v
}

// SetUpdatedAt updates the updated_at timestamp (used by repository).
func (b *BaseEntity) SetUpdatedAt(t time.Time) {
	b.UpdatedAt = t
}
