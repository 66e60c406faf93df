// Package catalog_repo provides PostgreSQL repositories for owner-scoped
// reference data: customers and numbering batches.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	"facturard/internal/domain"
	"facturard/internal/infrastructure/storage/postgres"
)

// BaseRepo provides common CRUD operations for rows carrying owner_id.
// Every read and write is filtered by the owner passed in.
type BaseRepo[T any] struct {
	qp           postgres.QuerierProvider
	tableName    string
	selectCols   []string
	searchCols   []string
	defaultOrder string
	newFn        func() T
}

// NewBaseRepo creates a new base repository.
func NewBaseRepo[T any](
	qp postgres.QuerierProvider,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseRepo[T] {
	return &BaseRepo[T]{
		qp:           qp,
		tableName:    tableName,
		selectCols:   selectCols,
		defaultOrder: "created_at DESC",
		newFn:        newFn,
	}
}

// WithSearch sets the columns matched by ListFilter.Search.
func (r *BaseRepo[T]) WithSearch(cols ...string) *BaseRepo[T] {
	r.searchCols = cols
	return r
}

// WithDefaultOrder sets the ORDER BY used when the filter names none.
func (r *BaseRepo[T]) WithDefaultOrder(order string) *BaseRepo[T] {
	r.defaultOrder = order
	return r
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *BaseRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the querier bound to ctx (transaction or pool).
func (r *BaseRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.qp.GetQuerier(ctx)
}

// Create inserts a new entity using its "db" tags.
func (r *BaseRepo[T]) Create(ctx context.Context, entity T) error {
	data := r.columnsOf(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err), r.tableName)
	}

	return nil
}

// Update modifies an existing entity with optimistic locking.
// The caller's version must match the stored one; the stored version is bumped.
func (r *BaseRepo[T]) Update(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)

	entityID, ok := data["id"]
	if !ok {
		return fmt.Errorf("entity has no 'id' field with db tag")
	}
	ownerID, ok := data["owner_id"]
	if !ok {
		return fmt.Errorf("entity has no 'owner_id' field with db tag")
	}
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	set := r.columnsOf(entity)
	for _, col := range []string{"id", "owner_id", "version", "created_at"} {
		delete(set, col)
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID, "owner_id": ownerID, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err), r.tableName)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, entityID)
	}

	return nil
}

// columnsOf maps the entity to the repository's column whitelist.
func (r *BaseRepo[T]) columnsOf(entity T) map[string]any {
	data := postgres.StructToMap(entity)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered
}

// Select creates a SELECT builder scoped to the owner.
func (r *BaseRepo[T]) Select(ownerID id.ID) squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"owner_id": ownerID})
}

// GetByID retrieves entity by ID.
func (r *BaseRepo[T]) GetByID(ctx context.Context, ownerID, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.Select(ownerID).Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// GetForUpdate retrieves entity by ID with row lock. Must run inside a transaction.
func (r *BaseRepo[T]) GetForUpdate(ctx context.Context, ownerID, entityID id.ID) (T, error) {
	return r.FindOne(ctx, r.Select(ownerID).Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID.String())
}

// FindOne executes a SELECT query and returns a single entity.
func (r *BaseRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.Querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}

	return entity, nil
}

// FindAll executes a SELECT query and scans every row.
func (r *BaseRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return items, nil
}

// List retrieves entities with filtering and pagination.
// extra is applied after the common filters; pass nil when unused.
func (r *BaseRepo[T]) List(
	ctx context.Context,
	ownerID id.ID,
	filter domain.ListFilter,
	extra func(squirrel.SelectBuilder) squirrel.SelectBuilder,
) (domain.ListResult[T], error) {
	filter.Normalize()
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.Select(ownerID)

	if !filter.IncludeDeleted && r.hasColumn("deletion_mark") {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Search != "" && len(r.searchCols) > 0 {
		pattern := "%" + filter.Search + "%"
		or := squirrel.Or{}
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	if filter.Status != "" && r.hasColumn("status") {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.DateFrom != nil && r.hasColumn("date") {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil && r.hasColumn("date") {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	if extra != nil {
		q = extra(q)
	}

	countSQL, countArgs, err := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	if err := r.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.ParseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	items, err := r.FindAll(ctx, q)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}

	return result, nil
}

// Delete performs physical removal from the database.
func (r *BaseRepo[T]) Delete(ctx context.Context, ownerID, entityID id.ID) error {
	sql, args, err := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperror.NewConflict("record is referenced by other documents").
				WithDetail("entity", r.tableName).
				WithDetail("id", entityID.String()).
				WithCause(err)
		}
		return fmt.Errorf("execute delete %s: %w", r.tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tableName, entityID.String())
	}

	return nil
}

// SetDeletionMark sets or clears the deletion mark (soft delete).
func (r *BaseRepo[T]) SetDeletionMark(ctx context.Context, ownerID, entityID id.ID, marked bool) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		Set("deletion_mark", marked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": entityID, "owner_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("execute set deletion mark: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tableName, entityID.String())
	}

	return nil
}

func (r *BaseRepo[T]) hasColumn(col string) bool {
	for _, c := range r.selectCols {
		if c == col {
			return true
		}
	}
	return false
}

// ParseOrderBy turns "-field" / "field" into a whitelisted ORDER BY clause.
func (r *BaseRepo[T]) ParseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return r.defaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" || !r.hasColumn(field) {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}
