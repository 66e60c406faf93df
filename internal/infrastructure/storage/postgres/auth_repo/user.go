// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain/auth"
	"facturard/internal/infrastructure/storage/postgres"
)

const userColumns = `id, email, password_hash, business_name, tax_id, is_active,
	last_login_at, failed_login_attempts, locked_until, created_at, updated_at, version`

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	qp postgres.QuerierProvider
}

// NewUserRepo creates a new user repository.
func NewUserRepo(qp postgres.QuerierProvider) *UserRepo {
	return &UserRepo{qp: qp}
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.qp.GetQuerier(ctx)

	query := `
		INSERT INTO users (
			id, email, password_hash, business_name, tax_id,
			is_active, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.BusinessName, user.TaxID,
		user.IsActive, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "users_email_key") {
			return apperror.NewConflict("email already registered").WithDetail("email", user.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, "id = $1", userID, userID.String())
}

// GetByEmail retrieves user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email, email)
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any, key string) (*auth.User, error) {
	q := r.qp.GetQuerier(ctx)

	var user auth.User
	err := pgxscan.Get(ctx, q, &user, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// Update updates mutable account data with optimistic locking.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := r.qp.GetQuerier(ctx)

	query := `
		UPDATE users SET
			business_name = $2,
			is_active = $3,
			last_login_at = $4,
			failed_login_attempts = $5,
			locked_until = $6,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $1 AND version = $7
	`

	result, err := q.Exec(ctx, query,
		user.ID, user.BusinessName, user.IsActive, user.LastLoginAt,
		user.FailedLoginAttempts, user.LockedUntil, user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID)
	}

	user.Version++
	return nil
}

// Exists checks if email is taken.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	q := r.qp.GetQuerier(ctx)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

var _ auth.UserRepository = (*UserRepo)(nil)
