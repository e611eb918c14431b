package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"strings"

	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/internal/domains/user/model"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	gRepo "medsys/shared/repository"
)

// User stores accounts of every role. Rows are deactivated, never deleted,
// because appointments keep referencing them.
type User interface {
	Insert(ctx context.Context, model model.User) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.User, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.User, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.User]
}

func New(db *postgres.Connection, otel otel.Otel) User {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.User](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

func eq(field string, value any) gDto.Filter {
	return gDto.Filter{Field: field, Operator: gDto.FilterOperatorEq, Value: value, Table: model.TableName}
}

func ByID(id string) gDto.FilterGroup {
	return gDto.And(eq(model.FieldID, id))
}

func ByUsername(username string) gDto.FilterGroup {
	return gDto.And(eq(model.FieldUsername, username))
}

// ByUsernameOrEmail matches either identity; emails are stored lower-cased.
func ByUsernameOrEmail(username, email string) gDto.FilterGroup {
	return gDto.Or(eq(model.FieldUsername, username), eq(model.FieldEmail, strings.ToLower(email)))
}

// ActiveDoctors selects the public doctor directory.
func ActiveDoctors() gDto.FilterGroup {
	return gDto.And(eq(model.FieldRole, constant.RoleDoctor), eq(model.FieldActive, true))
}
