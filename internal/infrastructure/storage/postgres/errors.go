package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"facturard/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// MapUniqueViolation turns a violation of the named unique constraint into a
// duplicate error on field. Any other error is returned unchanged.
func MapUniqueViolation(err error, constraint, entity, field, value string) error {
	if !IsUniqueViolation(err, constraint) {
		return err
	}
	return apperror.NewDuplicate(entity, field, value).
		WithDetail("constraint", constraint).
		WithCause(err)
}

// MapError converts constraint violations into AppErrors. Other errors are
// returned unchanged.
func MapError(err error, entity string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewConflict(entity+" already exists").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewConflict(entity+" is referenced by other records").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation(entity+" violates a constraint").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return err
}
