package validation_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	otelMocks "medsys/infras/otel/mocks"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/mocks"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/validation"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/timezone"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var (
	now     = time.Date(2026, 1, 9, 8, 0, 0, 0, timezone.GetLocation())
	start   = time.Date(2026, 1, 10, 10, 0, 0, 0, timezone.GetLocation())
	end     = start.Add(30 * time.Minute)
	patient = model.Caller{ID: "pat-1", Role: constant.RolePatient}
)

func validCandidate() validation.Candidate {
	return validation.Candidate{
		Caller:    patient,
		PatientID: patient.ID,
		DoctorID:  "doc-1",
		Start:     start,
		End:       end,
	}
}

func TestPipeline_Validate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	counter := mocks.NewMockCounter(ctrl)
	pipeline := validation.Default(otelMocks.NewOtel(), store, conflict.NewDetector(counter), fixedClock{now: now}, 3)

	dayStart, dayEnd := timezone.DayBounds(start)

	tests := []struct {
		name      string
		candidate func() validation.Candidate
		setupMock func()
		wantCode  int
		wantMsg   string
	}{
		{
			name:      "valid booking",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, "doc-1", start, end, model.LiveStatuses()).Return(0, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyPatient, "pat-1", start, end, model.LiveStatuses()).Return(0, nil)
				store.EXPECT().CountOnDay(gomock.Any(), "pat-1", dayStart, dayEnd, model.LiveStatuses()).Return(2, nil)
			},
		},
		{
			name: "anonymous caller",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.Caller = model.Caller{}

				return c
			},
			setupMock: func() {},
			wantCode:  http.StatusUnauthorized,
			wantMsg:   "You must be logged in.",
		},
		{
			name: "doctor cannot book",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.Caller = model.Caller{ID: "doc-2", Role: constant.RoleDoctor}
				c.PatientID = "doc-2"

				return c
			},
			setupMock: func() {},
			wantCode:  http.StatusForbidden,
			wantMsg:   "Only patients can schedule appointments.",
		},
		{
			name: "booking for someone else",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.PatientID = "pat-2"

				return c
			},
			setupMock: func() {},
			wantCode:  http.StatusForbidden,
			wantMsg:   "You can only schedule for your own account.",
		},
		{
			name:      "unknown doctor",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(false, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Doctor does not exist.",
		},
		{
			name:      "doctor lookup fails",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(false, errors.New("db down"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name: "missing end",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.End = time.Time{}

				return c
			},
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "startTime and endTime must be provided",
		},
		{
			name: "unparseable interval",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.IntervalErr = errors.New("start_time must be an RFC3339 timestamp")

				return c
			},
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "start_time must be an RFC3339 timestamp",
		},
		{
			name: "zero length interval",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.End = c.Start

				return c
			},
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "startTime must be before endTime",
		},
		{
			name: "in the past",
			candidate: func() validation.Candidate {
				c := validCandidate()
				c.Start = now.Add(-time.Hour)
				c.End = now.Add(-30 * time.Minute)

				return c
			},
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "Cannot schedule in the past.",
		},
		{
			name:      "doctor busy",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, "doc-1", start, end, model.LiveStatuses()).Return(1, nil)
			},
			wantCode: http.StatusConflict,
			wantMsg:  "Selected doctor is not available in this time interval.",
		},
		{
			name:      "patient busy",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, "doc-1", start, end, model.LiveStatuses()).Return(0, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyPatient, "pat-1", start, end, model.LiveStatuses()).Return(1, nil)
			},
			wantCode: http.StatusConflict,
			wantMsg:  "You already have an appointment at this time.",
		},
		{
			name:      "overlap lookup fails",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, "doc-1", start, end, model.LiveStatuses()).Return(0, errors.New("db down"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:      "daily quota reached",
			candidate: validCandidate,
			setupMock: func() {
				store.EXPECT().ExistsDoctor(gomock.Any(), "doc-1").Return(true, nil)
				counter.EXPECT().CountOverlapping(gomock.Any(), gomock.Any(), gomock.Any(), start, end, model.LiveStatuses()).Return(0, nil).Times(2)
				store.EXPECT().CountOnDay(gomock.Any(), "pat-1", dayStart, dayEnd, model.LiveStatuses()).Return(3, nil)
			},
			wantCode: http.StatusConflict,
			wantMsg:  "Daily limit reached for appointments.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			err := pipeline.Validate(context.Background(), tt.candidate())

			if tt.wantCode == 0 {
				assert.NoError(t, err)

				return
			}

			assert.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestPipeline_StopsAtFirstFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockCheck(ctrl)
	second := mocks.NewMockCheck(ctrl)

	first.EXPECT().Name().Return("first").AnyTimes()
	first.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(failure.Conflict("nope"))

	pipeline := validation.NewPipeline(otelMocks.NewOtel(), first, second)

	err := pipeline.Validate(context.Background(), validCandidate())

	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
}

func TestDefault_Order(t *testing.T) {
	pipeline := validation.Default(otelMocks.NewOtel(), nil, nil, fixedClock{now: now}, 3)

	assert.Equal(t, []string{
		"identity",
		"role-ownership",
		"doctor-exists",
		"time-sanity",
		"doctor-overlap",
		"patient-overlap",
		"daily-quota",
	}, pipeline.Checks())
}

func TestDailyQuota_NextDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	check := validation.NewDailyQuota(store, 3)

	nextDay := validCandidate()
	nextDay.Start = start.AddDate(0, 0, 1)
	nextDay.End = end.AddDate(0, 0, 1)

	dayStart, dayEnd := timezone.DayBounds(nextDay.Start)

	store.EXPECT().CountOnDay(gomock.Any(), "pat-1", dayStart, dayEnd, model.LiveStatuses()).Return(0, nil)

	assert.NoError(t, check.Validate(context.Background(), nextDay))
}

func TestDailyQuota_PermissiveLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	check := validation.NewDailyQuota(store, 999)

	store.EXPECT().CountOnDay(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(10, nil)

	assert.NoError(t, check.Validate(context.Background(), validCandidate()))
}
