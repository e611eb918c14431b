package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medsys/internal/domains/user/model"
	"medsys/internal/domains/user/repository"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
)

func TestByUsernameOrEmail(t *testing.T) {
	group := repository.ByUsernameOrEmail("patient1", "Patient1@Clinic.TEST")

	assert.Equal(t, gDto.FilterGroupOperatorOr, group.Operator)
	require.Len(t, group.Filters, 2)

	email, ok := group.Filters[1].(gDto.Filter)
	require.True(t, ok)
	assert.Equal(t, model.FieldEmail, email.Field)
	assert.Equal(t, "patient1@clinic.test", email.Value)
}

func TestActiveDoctors(t *testing.T) {
	group := repository.ActiveDoctors()

	assert.Equal(t, gDto.FilterGroupOperatorAnd, group.Operator)
	assert.ElementsMatch(t, []any{
		gDto.Filter{Field: model.FieldRole, Operator: gDto.FilterOperatorEq, Value: constant.RoleDoctor, Table: model.TableName},
		gDto.Filter{Field: model.FieldActive, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
	}, group.Filters)
}

func TestByID(t *testing.T) {
	group := repository.ByID("u-1")

	require.Len(t, group.Filters, 1)
	assert.Equal(t, gDto.Filter{Field: model.FieldID, Operator: gDto.FilterOperatorEq, Value: "u-1", Table: model.TableName}, group.Filters[0])
}
