package repository_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	otelMocks "medsys/infras/otel/mocks"
	"medsys/shared/model"
	"medsys/shared/repository"
)

type visit struct {
	ID         string `db:"id"`
	DoctorID   string `db:"doctor_id"`
	DoctorName string `db:"doctor_name" table:"users" column:"username"`
	Ignored    string
	model.Metadata
}

func newVisitRepo() repository.Repository[visit] {
	return repository.NewRepository[visit]("visit", "visits", "id", nil, otelMocks.NewOtel())
}

func TestSelectColumns(t *testing.T) {
	repo := newVisitRepo()

	assert.Equal(t,
		"visits.id, visits.doctor_id, users.username AS doctor_name, visits.created_at, visits.modified_at, visits.created_by, visits.modified_by",
		repo.SelectColumns())
	assert.Equal(t, "visits.id, users.username AS doctor_name", repo.SelectColumns("id", "username"))
}

func TestOrderBy(t *testing.T) {
	repo := newVisitRepo()

	tests := []struct {
		name     string
		sortBy   string
		sortDir  string
		expected string
	}{
		{name: "qualified", sortBy: "visits.created_at", sortDir: "DESC", expected: "ORDER BY visits.created_at DESC"},
		{name: "bare own column", sortBy: "doctor_id", sortDir: "asc", expected: "ORDER BY visits.doctor_id ASC"},
		{name: "joined column qualified", sortBy: "users.username", sortDir: "ASC", expected: "ORDER BY users.username ASC"},
		{name: "unknown column", sortBy: "password", sortDir: "ASC", expected: ""},
		{name: "injection attempt", sortBy: "id; DROP TABLE visits", sortDir: "ASC", expected: ""},
		{name: "bad direction", sortBy: "id", sortDir: "UP", expected: ""},
		{name: "empty", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, repo.OrderBy(tt.sortBy, tt.sortDir))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}

	assert.True(t, repository.IsUniqueViolation(unique))
	assert.True(t, repository.IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	assert.False(t, repository.IsUniqueViolation(fk))
	assert.False(t, repository.IsUniqueViolation(errors.New("boom")))
	assert.False(t, repository.IsUniqueViolation(nil))
}
