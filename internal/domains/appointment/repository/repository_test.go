package repository_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	otelMocks "medsys/infras/otel/mocks"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/repository"
	"medsys/shared/failure"
)

var (
	dayStart = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.AddDate(0, 0, 1)
)

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "5f0c3a52-8f5e-4b7b-9d8f-0a2a5d7f1e11", want: true},
		{id: "5F0C3A52-8F5E-4B7B-9D8F-0A2A5D7F1E11", want: true},
		{id: "doc-1"},
		{id: ""},
		{id: "5f0c3a52-8f5e-4b7b-9d8f-0a2a5d7f1e1"},
		{id: "' OR 1=1 --"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.ValidID(tt.id))
		})
	}
}

func TestDayFilter(t *testing.T) {
	filter := repository.DayFilter("pat-1", dayStart, dayEnd, model.LiveStatuses())

	where, args := filter.GetWhereClause()

	assert.Equal(t,
		"(appointments.patient_id = :patient_id AND appointments.start_time >= :day_start"+
			" AND appointments.start_time < :day_end AND appointments.status IN (:statuses_0, :statuses_1))",
		where)
	assert.Equal(t, map[string]any{
		"patient_id": "pat-1",
		"day_start":  dayStart,
		"day_end":    dayEnd,
		"statuses_0": "PENDING",
		"statuses_1": "ACCEPTED",
	}, args)
}

func TestDayFilter_NoStatusesMatchesNothing(t *testing.T) {
	filter := repository.DayFilter("pat-1", dayStart, dayEnd, nil)

	where, _ := filter.GetWhereClause()

	assert.Contains(t, where, "AND FALSE)")
}

func TestActiveDoctorFilter(t *testing.T) {
	filter := repository.ActiveDoctorFilter("doc-1")

	where, args := filter.GetWhereClause()

	assert.Equal(t, "(users.id = :id AND users.role = :role AND users.active = :active)", where)
	assert.Equal(t, map[string]any{"id": "doc-1", "role": "DOCTOR", "active": true}, args)
}

func TestTransitionArgs(t *testing.T) {
	at := time.Date(2026, 1, 9, 8, 0, 0, 0, time.UTC)

	args := repository.TransitionArgs("appt-1", model.StatusPending, model.StatusAccepted, "doc-1", at)

	assert.Equal(t, map[string]any{
		"id":          "appt-1",
		"from_status": "PENDING",
		"to_status":   "ACCEPTED",
		"modified_at": at,
		"modified_by": "doc-1",
	}, args)
}

func TestMalformedIDsNeverReachTheDatabase(t *testing.T) {
	repo := repository.New(nil, otelMocks.NewOtel())

	t.Run("load", func(t *testing.T) {
		appt, err := repo.Load(context.Background(), "not-a-uuid")

		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
		assert.Equal(t, "Appointment not found.", err.Error())
		assert.Empty(t, appt.ID)
	})

	t.Run("doctor lookup", func(t *testing.T) {
		exists, err := repo.ExistsDoctor(context.Background(), "not-a-uuid")

		assert.NoError(t, err)
		assert.False(t, exists)
	})
}
