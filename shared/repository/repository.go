package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/lib/pq"

	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/shared/constant"
	"medsys/shared/dto"
	"medsys/shared/logger"
)

var errRequiredFilter = errors.New("required filter")

// IsUniqueViolation reports whether err carries a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation
}

// Repository is the table gateway shared by every domain repository. Reads go
// to the replica connection and writes to the primary.
type Repository[T any] struct {
	db            *postgres.Connection
	otel          otel.Otel
	table         string
	entity        string
	primaryColumn string
	columns       []column
	insertColumns []string
	join          string
}

type joiner interface {
	GetJoinQuery() string
}

func NewRepository[T any](entityName, tableName, primaryColumn string, db *postgres.Connection, otl otel.Otel) Repository[T] {
	var zero T

	columns, insertColumns := scanColumns(tableName, reflect.TypeOf(zero))

	var join string
	if j, ok := any(zero).(joiner); ok {
		join = j.GetJoinQuery()
	}

	return Repository[T]{
		db:            db,
		otel:          otl,
		table:         tableName,
		entity:        entityName,
		primaryColumn: primaryColumn,
		columns:       columns,
		insertColumns: insertColumns,
		join:          join,
	}
}

func (repo *Repository[T]) scope(ctx context.Context, op string) (context.Context, otel.Scope) {
	return repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, fmt.Sprintf("%s.%s.%s", constant.OtelRepositoryScopeName, repo.entity, op))
}

func (repo *Repository[T]) fail(scope otel.Scope, action string, err error) error {
	logger.ErrorWithStack(err)
	scope.TraceError(err)

	return fmt.Errorf("failed to %s (%s): %w", action, repo.entity, err)
}

// QueryRow runs a named query against the primary and scans the first row
// into dest. sql.ErrNoRows is returned unwrapped.
func (repo *Repository[T]) QueryRow(ctx context.Context, op, query string, args map[string]any, dest any) error {
	ctx, scope := repo.scope(ctx, op)
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	stmt, err := repo.db.Write.PrepareNamedContext(ctx, query)
	if err != nil {
		return repo.fail(scope, "prepare statement", err)
	}
	defer stmt.Close()

	if err = stmt.GetContext(ctx, dest, args); err != nil {
		if errors.Is(err, sql.ErrNoRows) || IsUniqueViolation(err) {
			return err //nolint:wrapcheck
		}

		return repo.fail(scope, op, err)
	}

	return nil
}

// Exec runs a named statement against the primary and returns the affected row count.
func (repo *Repository[T]) Exec(ctx context.Context, op, query string, args any) (int64, error) {
	ctx, scope := repo.scope(ctx, op)
	defer scope.End()

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	res, err := repo.db.Write.NamedExecContext(ctx, query, args)
	if err != nil {
		if IsUniqueViolation(err) {
			return 0, err //nolint:wrapcheck
		}

		return 0, repo.fail(scope, op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, repo.fail(scope, "read affected rows", err)
	}

	return affected, nil
}

func (repo *Repository[T]) read(ctx context.Context, scope otel.Scope, query string, args map[string]any, scan func(stmt preparedQuery) error) error {
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	stmt, err := repo.db.Read.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	return scan(stmt)
}

type preparedQuery interface {
	GetContext(ctx context.Context, dest any, arg any) error
	SelectContext(ctx context.Context, dest any, arg any) error
}

// Insert writes every column the model owns. Unique violations are returned
// as is so callers can map them with IsUniqueViolation.
func (repo *Repository[T]) Insert(ctx context.Context, model T) error {
	placeholders := make([]string, len(repo.insertColumns))
	for i, col := range repo.insertColumns {
		placeholders[i] = ":" + col
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", repo.table, strings.Join(repo.insertColumns, ", "), strings.Join(placeholders, ", "))

	_, err := repo.Exec(ctx, "Insert", query, model)

	return err
}

func (repo *Repository[T]) Exist(ctx context.Context, filter dto.FilterGroup) (bool, error) {
	ctx, scope := repo.scope(ctx, "Exist")
	defer scope.End()

	where, args := repo.BuildWhereClause(filter)
	if where == "" {
		return false, errRequiredFilter
	}

	var exist bool

	err := repo.read(ctx, scope, fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s %s)", repo.table, where), args, func(stmt preparedQuery) error {
		return stmt.GetContext(ctx, &exist, args)
	})
	if err != nil {
		return false, repo.fail(scope, "check existence", err)
	}

	return exist, nil
}

// Get returns the zero model, not an error, when nothing matches.
func (repo *Repository[T]) Get(ctx context.Context, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.scope(ctx, "Get")
	defer scope.End()

	where, args := repo.BuildWhereClause(filter)
	query := fmt.Sprintf("SELECT %s FROM %s %s %s", repo.SelectColumns(columns...), repo.table, repo.join, where)

	var model T

	err := repo.read(ctx, scope, query, args, func(stmt preparedQuery) error {
		return stmt.GetContext(ctx, &model, args)
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model, nil
	case err != nil:
		return model, repo.fail(scope, "get data", err)
	}

	return model, nil
}

func (repo *Repository[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.scope(ctx, "GetAll")
	defer scope.End()

	where, args := repo.BuildWhereClause(filter)

	var pagination string
	if params.Limit > 0 {
		args["limit"] = params.Limit
		args["offset"] = params.Offset()
		pagination = "LIMIT :limit OFFSET :offset"
	}

	query := fmt.Sprintf("SELECT %s FROM %s %s %s %s %s",
		repo.SelectColumns(columns...), repo.table, repo.join, where, repo.OrderBy(params.SortBy, params.SortDir), pagination)

	var models []T

	err := repo.read(ctx, scope, query, args, func(stmt preparedQuery) error {
		return stmt.SelectContext(ctx, &models, args)
	})
	if err != nil {
		return models, repo.fail(scope, "list data", err)
	}

	return models, nil
}

func (repo *Repository[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.scope(ctx, "Count")
	defer scope.End()

	where, args := repo.BuildWhereClause(filter)
	query := fmt.Sprintf("SELECT COUNT(%s.%s) FROM %s %s %s", repo.table, repo.primaryColumn, repo.table, repo.join, where)

	var count int

	err := repo.read(ctx, scope, query, args, func(stmt preparedQuery) error {
		return stmt.GetContext(ctx, &count, args)
	})
	if err != nil {
		return 0, repo.fail(scope, "count data", err)
	}

	return count, nil
}

// Update refuses to run without a filter. Columns are set in sorted order so
// the statement text is stable.
func (repo *Repository[T]) Update(ctx context.Context, fields map[string]any, filter dto.FilterGroup) error {
	where, args := repo.BuildWhereClause(filter)
	if where == "" {
		return errRequiredFilter
	}

	assignments := make([]string, 0, len(fields))
	for _, col := range slices.Sorted(maps.Keys(fields)) {
		assignments = append(assignments, fmt.Sprintf("%s = :%s", col, col))
	}

	maps.Copy(args, fields)

	_, err := repo.Exec(ctx, "Update", fmt.Sprintf("UPDATE %s SET %s %s", repo.table, strings.Join(assignments, ", "), where), args)

	return err
}

func (repo *Repository[T]) BuildWhereClause(filter dto.FilterGroup) (string, map[string]any) {
	where, args := filter.GetWhereClause()
	if where == "" {
		return "", map[string]any{}
	}

	return fmt.Sprintf(" WHERE %s ", where), args
}
