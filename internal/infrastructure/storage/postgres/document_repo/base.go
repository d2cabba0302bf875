// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"supplyhub/internal/core/apperror"
	"supplyhub/internal/core/id"
	"supplyhub/internal/domain"
	"supplyhub/internal/infrastructure/storage/postgres"
)

// builder is the squirrel builder with Postgres placeholders.
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// BaseDocumentRepo provides common CRUD operations for document headers.
// T is a pointer to a struct with db tags.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	entityName string
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	entityName string,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		entityName: entityName,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// columns returns selectCols qualified with alias.
func (r *BaseDocumentRepo[T]) columns(alias string) []string {
	if alias == "" {
		return r.selectCols
	}
	cols := make([]string, len(r.selectCols))
	for i, c := range r.selectCols {
		cols[i] = alias + "." + c
	}
	return cols
}

// insertQuery builds the INSERT for the entity's db-tagged columns.
func (r *BaseDocumentRepo[T]) insertQuery(entity T) (string, []any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("no db tags found in %s", r.entityName)
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return builder.Insert(r.tableName).SetMap(filtered).ToSql()
}

// Create inserts a new document.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.insertQuery(entity)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// updateQuery builds an UPDATE guarded by the version the caller read.
func (r *BaseDocumentRepo[T]) updateQuery(entity T) (string, []any, any, error) {
	data := postgres.StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return "", nil, nil, fmt.Errorf("%s has no 'id' field", r.entityName)
	}
	version, ok := data["version"].(int)
	if !ok {
		return "", nil, nil, fmt.Errorf("%s has no int 'version' field", r.entityName)
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		switch col {
		case "id", "number", "created_at", "version", "updated_at":
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := builder.
		Update(r.tableName).
		SetMap(filtered).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID, "version": version}).
		ToSql()
	return sql, args, entityID, err
}

// Update updates an existing document with optimistic locking.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	sql, args, entityID, err := r.updateQuery(entity)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, fmt.Sprint(entityID))
	}
	return nil
}

// baseSelect creates a SELECT builder.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return builder.Select(r.selectCols...).From(r.tableName)
}

func (r *BaseDocumentRepo[T]) get(ctx context.Context, q squirrel.SelectBuilder, entityID id.ID) (T, error) {
	entity := r.newFn()
	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, entityID.String())
		}
		return entity, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.get(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}), entityID)
}

// lockQuery selects the document row and locks it until the transaction ends.
func (r *BaseDocumentRepo[T]) lockQuery(entityID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE")
}

// GetForUpdate retrieves document with row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.get(ctx, r.lockQuery(entityID), entityID)
}

// insertRows builds a multi-row INSERT of the db-tagged columns of rows.
func insertRows[R any](table string, cols []string, rows []R) (string, []any, error) {
	q := builder.Insert(table).Columns(cols...)
	for _, row := range rows {
		values, err := postgres.RowValues(row, cols)
		if err != nil {
			return "", nil, err
		}
		q = q.Values(values...)
	}
	return q.ToSql()
}

// list counts and pages q. q must not carry ORDER BY, LIMIT or OFFSET.
func list[T any](ctx context.Context, db postgres.Querier, q squirrel.SelectBuilder, orderBy string, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}

	countSQL, countArgs, err := builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := db.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy(orderBy)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, db, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}
	return result, nil
}

// orderByClause validates "field", "+field" or "-field" against allowed and
// qualifies it with prefix. Empty input yields fallback.
func orderByClause(orderBy string, allowed []string, prefix, fallback string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return prefix + fallback, nil
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

	for _, col := range allowed {
		if col == field {
			// Tie-break on id so pages are stable.
			return fmt.Sprintf("%s%s %s, %sid %s", prefix, field, direction, prefix, direction), nil
		}
	}
	return "", apperror.NewValidation("invalid order_by").WithDetail("order_by", orderBy)
}
