package auth

import (
	"context"

	"facturard/internal/core/id"
)

// UserRepository defines account storage operations.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update uses optimistic locking on version.
	Update(ctx context.Context, user *User) error

	Exists(ctx context.Context, email string) (bool, error)
}

// TokenRepository defines refresh token storage operations.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error

	// CleanupExpiredTokens removes expired and long-revoked tokens.
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// SubscriptionStarter opens the default plan for a freshly registered account.
// It runs inside the registration transaction.
type SubscriptionStarter interface {
	StartDefault(ctx context.Context, ownerID id.ID) error
}
