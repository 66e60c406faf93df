// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated account information.
// The account is the tenant: every row it creates is scoped by its UserID.
type UserContext struct {
	UserID       string
	Email        string
	BusinessName string
	TaxID        string
	SessionID    string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetOwnerID returns the owner all data in this request is scoped to.
func GetOwnerID(ctx context.Context) string {
	return GetUserID(ctx)
}
