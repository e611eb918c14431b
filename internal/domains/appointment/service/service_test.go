package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"medsys/config"
	otelMocks "medsys/infras/otel/mocks"
	s3Mocks "medsys/infras/s3/mocks"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/event"
	"medsys/internal/domains/appointment/mocks"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/internal/domains/appointment/policy"
	"medsys/internal/domains/appointment/service"
	"medsys/internal/domains/appointment/validation"
	"medsys/shared/cache"
	cacheMocks "medsys/shared/cache/mocks"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/timezone"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

var (
	loc      = timezone.GetLocation()
	today    = time.Date(2026, 1, 9, 8, 0, 0, 0, loc)
	slotFrom = time.Date(2026, 1, 10, 10, 0, 0, 0, loc)
	slotTo   = slotFrom.Add(30 * time.Minute)

	patient = model.Caller{ID: "pat-1", Role: constant.RolePatient}
	doctor  = model.Caller{ID: "doc-1", Role: constant.RoleDoctor}
)

type fixture struct {
	repo    *mocks.MockAppointment
	sink    *mocks.MockSink
	locker  *cacheMocks.MockLocker
	cache   *cacheMocks.MockRedisCache
	storage *s3Mocks.MockS3
	clock   *fixedClock
	svc     service.Appointment
}

func newFixture(t *testing.T, ctrl *gomock.Controller, policyName string, buffer, maxPerDay int) *fixture {
	t.Helper()

	f := &fixture{
		repo:    mocks.NewMockAppointment(ctrl),
		sink:    mocks.NewMockSink(ctrl),
		locker:  cacheMocks.NewMockLocker(ctrl),
		cache:   cacheMocks.NewMockRedisCache(ctrl),
		storage: s3Mocks.NewMockS3(ctrl),
		clock:   &fixedClock{now: today},
	}

	cfg := &config.Config{}
	cfg.Booking.Policy = policyName
	cfg.Booking.Buffer = buffer
	cfg.Booking.MaxPerDay = maxPerDay

	f.locker.EXPECT().
		WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()
	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.svc = f.build(cfg)

	return f
}

// build wires the real pipeline and capacity policy over the mocked store.
func (f *fixture) build(cfg *config.Config) service.Appointment {
	ot := otelMocks.NewOtel()
	detector := conflict.NewDetector(f.repo)

	return service.New(
		f.repo,
		validation.Default(ot, f.repo, detector, f.clock, cfg.Booking.MaxPerDay),
		policy.New(cfg, detector),
		f.sink,
		f.locker,
		f.cache,
		f.storage,
		f.clock,
		cfg,
		ot,
	)
}

// expectAdmission scripts the store reads made by the pipeline and the capacity policy.
func (f *fixture) expectAdmission(doctorOverlap, patientOverlap, daily, slotCount int) {
	if !f.expectPipeline(doctorOverlap, patientOverlap, daily) {
		return
	}

	f.repo.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, doctor.ID, slotFrom, slotTo, model.LiveStatuses()).Return(slotCount, nil)
}

// expectPipeline scripts the pipeline reads and reports whether every check passes.
func (f *fixture) expectPipeline(doctorOverlap, patientOverlap, daily int) bool {
	f.repo.EXPECT().ExistsDoctor(gomock.Any(), doctor.ID).Return(true, nil)
	f.repo.EXPECT().CountOverlapping(gomock.Any(), model.PartyDoctor, doctor.ID, slotFrom, slotTo, model.LiveStatuses()).Return(doctorOverlap, nil)

	if doctorOverlap > 0 {
		return false
	}

	f.repo.EXPECT().CountOverlapping(gomock.Any(), model.PartyPatient, patient.ID, slotFrom, slotTo, model.LiveStatuses()).Return(patientOverlap, nil)

	if patientOverlap > 0 {
		return false
	}

	f.repo.EXPECT().CountOnDay(gomock.Any(), patient.ID, gomock.Any(), gomock.Any(), model.LiveStatuses()).Return(daily, nil)

	return daily < 3
}

func createRequest() dto.CreateAppointmentRequest {
	return dto.CreateAppointmentRequest{
		DoctorID:  doctor.ID,
		StartTime: slotFrom.Format(time.RFC3339),
		EndTime:   slotTo.Format(time.RFC3339),
		Reason:    "checkup",
	}
}

func saveEcho(_ context.Context, appt model.Appointment, _ int) (model.Appointment, error) {
	return appt, nil
}

func TestAppointmentService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	tests := []struct {
		name      string
		caller    model.Caller
		req       dto.CreateAppointmentRequest
		setupMock func()
		wantCode  int
		wantMsg   string
	}{
		{
			name:   "valid request is pending",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(0, 0, 0, 0)
				f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).DoAndReturn(saveEcho)
				f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, evt event.Event) error {
						assert.Equal(t, event.KindCreated, evt.Type)
						assert.Equal(t, patient.ID, evt.PatientID)

						return nil
					})
			},
		},
		{
			name:      "anonymous caller",
			caller:    model.Caller{},
			req:       createRequest(),
			setupMock: func() {},
			wantCode:  http.StatusUnauthorized,
		},
		{
			name:   "bad timestamp",
			caller: patient,
			req: dto.CreateAppointmentRequest{
				DoctorID:  doctor.ID,
				StartTime: "tomorrow",
				EndTime:   slotTo.Format(time.RFC3339),
			},
			setupMock: func() {
				f.repo.EXPECT().ExistsDoctor(gomock.Any(), doctor.ID).Return(true, nil)
			},
			wantCode: http.StatusBadRequest,
			wantMsg:  "start_time must be an RFC3339 timestamp",
		},
		{
			name:   "second booking of a strict slot",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(1, 0, 0, 0)
			},
			wantCode: http.StatusConflict,
		},
		{
			name:   "slot filled between check and insert",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(0, 0, 0, 1)
			},
			wantCode: http.StatusConflict,
			wantMsg:  "Slot already taken for this doctor at the requested time.",
		},
		{
			name:   "store unique violation",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(0, 0, 0, 0)
				f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).
					Return(model.Appointment{}, failure.Conflict("Slot already taken for this doctor at the requested time."))
			},
			wantCode: http.StatusConflict,
		},
		{
			name:   "store failure",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(0, 0, 0, 0)
				f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).Return(model.Appointment{}, errors.New("db down"))
			},
			wantCode: http.StatusInternalServerError,
		},
		{
			name:   "sink failure does not fail the booking",
			caller: patient,
			req:    createRequest(),
			setupMock: func() {
				f.expectAdmission(0, 0, 0, 0)
				f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).DoAndReturn(saveEcho)
				f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Create(context.Background(), tt.caller, tt.req)

			if tt.wantCode == 0 {
				assert.NoError(t, err)
				assert.NotEmpty(t, res.ID)
				assert.Equal(t, string(model.StatusPending), res.Status)
				assert.Equal(t, patient.ID, res.PatientID)

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

func TestAppointmentService_Create_LockBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := &fixture{
		repo:   mocks.NewMockAppointment(ctrl),
		sink:   mocks.NewMockSink(ctrl),
		locker: cacheMocks.NewMockLocker(ctrl),
		cache:  cacheMocks.NewMockRedisCache(ctrl),
		clock:  &fixedClock{now: today},
	}

	cfg := &config.Config{}
	cfg.Booking.MaxPerDay = 3

	f.locker.EXPECT().WithLock(gomock.Any(), "appointment:doctor:doc-1", gomock.Any()).Return(cache.ErrLockNotAcquired)

	svc := f.build(cfg)

	f.expectPipeline(0, 0, 0)

	_, err := svc.Create(context.Background(), patient, createRequest())

	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
}

func TestAppointmentService_Create_Buffered(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyBuffered, 1, 3)

	f.expectAdmission(0, 0, 0, 1)
	f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 2).DoAndReturn(saveEcho)
	f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Create(context.Background(), patient, createRequest())
	assert.NoError(t, err)

	f.expectAdmission(0, 0, 0, 2)

	_, err = f.svc.Create(context.Background(), patient, createRequest())
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, "Overbooking limit reached for this time slot.", err.Error())
}

func TestAppointmentService_Create_DailyQuota(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	f.expectAdmission(0, 0, 3, 0)

	_, err := f.svc.Create(context.Background(), patient, createRequest())
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, "Daily limit reached for appointments.", err.Error())

	nextFrom := slotFrom.AddDate(0, 0, 1)
	nextTo := slotTo.AddDate(0, 0, 1)
	nextDayStart, nextDayEnd := timezone.DayBounds(nextFrom)

	f.repo.EXPECT().ExistsDoctor(gomock.Any(), doctor.ID).Return(true, nil)
	f.repo.EXPECT().CountOverlapping(gomock.Any(), gomock.Any(), gomock.Any(), nextFrom, nextTo, model.LiveStatuses()).Return(0, nil).Times(3)
	f.repo.EXPECT().CountOnDay(gomock.Any(), patient.ID, nextDayStart, nextDayEnd, model.LiveStatuses()).Return(0, nil)
	f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).DoAndReturn(saveEcho)
	f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	req := createRequest()
	req.StartTime = nextFrom.Format(time.RFC3339)
	req.EndTime = nextTo.Format(time.RFC3339)

	res, err := f.svc.Create(context.Background(), patient, req)
	assert.NoError(t, err)
	assert.Equal(t, string(model.StatusPending), res.Status)
}

func pending() model.Appointment {
	return model.Appointment{
		ID:        "appt-1",
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		StartTime: slotFrom,
		EndTime:   slotTo,
		Status:    model.StatusPending,
	}
}

func TestAppointmentService_Decide(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	tests := []struct {
		name       string
		caller     model.Caller
		decision   string
		setupMock  func()
		wantStatus model.Status
		wantCode   int
	}{
		{
			name:     "accept",
			caller:   doctor,
			decision: "accept",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)
				f.repo.EXPECT().TransitionStatus(gomock.Any(), "appt-1", model.StatusPending, model.StatusAccepted, doctor.ID, today).Return(nil)
				f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, evt event.Event) error {
						assert.Equal(t, event.KindAccepted, evt.Type)

						return nil
					})
			},
			wantStatus: model.StatusAccepted,
		},
		{
			name:     "reject maps to denied",
			caller:   doctor,
			decision: "Rejected",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)
				f.repo.EXPECT().TransitionStatus(gomock.Any(), "appt-1", model.StatusPending, model.StatusDenied, doctor.ID, today).Return(nil)
				f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: model.StatusDenied,
		},
		{
			name:     "unknown appointment",
			caller:   doctor,
			decision: "accept",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(model.Appointment{}, failure.NotFound("Appointment not found."))
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "already decided",
			caller:   doctor,
			decision: "deny",
			setupMock: func() {
				appt := pending()
				appt.Status = model.StatusAccepted
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(appt, nil)
			},
			wantCode: http.StatusConflict,
		},
		{
			name:     "other doctor",
			caller:   model.Caller{ID: "doc-2", Role: constant.RoleDoctor},
			decision: "accept",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)
			},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unsupported decision",
			caller:   doctor,
			decision: "maybe",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "lost race",
			caller:   doctor,
			decision: "accept",
			setupMock: func() {
				f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)
				f.repo.EXPECT().TransitionStatus(gomock.Any(), "appt-1", model.StatusPending, model.StatusAccepted, doctor.ID, today).
					Return(failure.Conflict("Appointment status changed by another request, please retry."))
			},
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := f.svc.Decide(context.Background(), tt.caller, "appt-1", tt.decision)

			if tt.wantCode == 0 {
				assert.NoError(t, err)
				assert.Equal(t, string(tt.wantStatus), res.Status)

				return
			}

			assert.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
		})
	}
}

func TestAppointmentService_Decide_Twice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	stored := pending()

	f.repo.EXPECT().Load(gomock.Any(), "appt-1").DoAndReturn(func(context.Context, string) (model.Appointment, error) {
		return stored, nil
	}).Times(3)
	f.repo.EXPECT().TransitionStatus(gomock.Any(), "appt-1", model.StatusPending, model.StatusAccepted, doctor.ID, today).
		DoAndReturn(func(_ context.Context, _ string, _, to model.Status, _ string, _ time.Time) error {
			stored.Status = to

			return nil
		})
	f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	_, err := f.svc.Decide(context.Background(), doctor, "appt-1", "ACCEPT")
	assert.NoError(t, err)

	for _, decision := range []string{"ACCEPT", "DENY"} {
		_, err = f.svc.Decide(context.Background(), doctor, "appt-1", decision)
		assert.Equal(t, http.StatusConflict, failure.GetCode(err))
		assert.Equal(t, "Only pending appointments can be changed.", err.Error())
	}
}

func TestAppointmentService_Cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	tests := []struct {
		name      string
		caller    model.Caller
		stored    func() model.Appointment
		setupMock func()
		wantCode  int
		wantMsg   string
	}{
		{
			name:   "pending is cancelled",
			caller: patient,
			stored: pending,
			setupMock: func() {
				f.repo.EXPECT().TransitionStatus(gomock.Any(), "appt-1", model.StatusPending, model.StatusCancelled, patient.ID, today).Return(nil)
				f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:      "other patient",
			caller:    model.Caller{ID: "pat-2", Role: constant.RolePatient},
			stored:    pending,
			setupMock: func() {},
			wantCode:  http.StatusForbidden,
			wantMsg:   "You can only cancel your own appointments.",
		},
		{
			name:   "denied is terminal",
			caller: patient,
			stored: func() model.Appointment {
				appt := pending()
				appt.Status = model.StatusDenied

				return appt
			},
			setupMock: func() {},
			wantCode:  http.StatusConflict,
			wantMsg:   "Only pending or accepted appointments can be cancelled.",
		},
		{
			name:   "accepted but already started",
			caller: patient,
			stored: func() model.Appointment {
				appt := pending()
				appt.Status = model.StatusAccepted
				appt.StartTime = today.Add(-time.Hour)
				appt.EndTime = today.Add(-30 * time.Minute)

				return appt
			},
			setupMock: func() {},
			wantCode:  http.StatusConflict,
			wantMsg:   "Cannot cancel past appointments.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(tt.stored(), nil)
			tt.setupMock()

			res, err := f.svc.Cancel(context.Background(), tt.caller, "appt-1")

			if tt.wantCode == 0 {
				assert.NoError(t, err)
				assert.Equal(t, string(model.StatusCancelled), res.Status)

				return
			}

			assert.Error(t, err)
			assert.Equal(t, tt.wantCode, failure.GetCode(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestAppointmentService_Lifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	var (
		stored model.Appointment
		kinds  []event.Kind
	)

	f.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, evt event.Event) error {
			kinds = append(kinds, evt.Type)

			return nil
		}).Times(3)

	f.expectAdmission(0, 0, 0, 0)
	f.repo.EXPECT().Save(gomock.Any(), gomock.Any(), 1).
		DoAndReturn(func(_ context.Context, appt model.Appointment, _ int) (model.Appointment, error) {
			stored = appt

			return appt, nil
		})
	f.repo.EXPECT().Load(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) (model.Appointment, error) {
			return stored, nil
		}).Times(2)
	f.repo.EXPECT().TransitionStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, from, to model.Status, _ string, _ time.Time) error {
			assert.Equal(t, stored.Status, from)
			stored.Status = to

			return nil
		}).Times(2)

	created, err := f.svc.Create(context.Background(), patient, createRequest())
	assert.NoError(t, err)
	assert.Equal(t, string(model.StatusPending), created.Status)

	accepted, err := f.svc.Decide(context.Background(), doctor, created.ID, "ACCEPT")
	assert.NoError(t, err)
	assert.Equal(t, string(model.StatusAccepted), accepted.Status)

	cancelled, err := f.svc.Cancel(context.Background(), patient, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, string(model.StatusCancelled), cancelled.Status)

	assert.Equal(t, []event.Kind{event.KindCreated, event.KindAccepted, event.KindCancelled}, kinds)
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		decision string
		want     model.Status
		wantMsg  string
	}{
		{decision: "ACCEPT", want: model.StatusAccepted},
		{decision: "accepted", want: model.StatusAccepted},
		{decision: "Deny", want: model.StatusDenied},
		{decision: "denied", want: model.StatusDenied},
		{decision: "reject", want: model.StatusDenied},
		{decision: "REJECTED", want: model.StatusDenied},
		{decision: "", wantMsg: "Decision must be provided"},
		{decision: "later", wantMsg: "Unsupported decision: later"},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			status, err := service.ParseDecision(tt.decision)

			if tt.wantMsg != "" {
				assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
				assert.Equal(t, tt.wantMsg, err.Error())

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}
