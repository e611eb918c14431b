package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"medsys/config"
	"medsys/internal/domains/appointment/mocks"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/internal/domains/appointment/service"
	"medsys/shared/cache"
	cacheMocks "medsys/shared/cache/mocks"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"
)

func TestAppointmentService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	tests := []struct {
		name     string
		caller   model.Caller
		wantCode int
	}{
		{name: "patient", caller: patient},
		{name: "doctor", caller: doctor},
		{name: "admin", caller: model.Caller{ID: "admin-1", Role: constant.RoleAdmin}},
		{name: "stranger", caller: model.Caller{ID: "pat-9", Role: constant.RolePatient}, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil)

			res, err := f.svc.Get(context.Background(), tt.caller, "appt-1")

			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, failure.GetCode(err))
				assert.Empty(t, res.ID)

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "appt-1", res.ID)
		})
	}
}

// memoryCache backs a MockRedisCache with a map so reads observe earlier writes.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	saved chan string
}

func newMemoryCache(ctrl *gomock.Controller) (*cacheMocks.MockRedisCache, *memoryCache) {
	mem := &memoryCache{items: map[string][]byte{}, saved: make(chan string, 8)}
	mock := cacheMocks.NewMockRedisCache(ctrl)

	mock.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, value any, _ int) error {
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}

			mem.mu.Lock()
			mem.items[key] = raw
			mem.mu.Unlock()

			mem.saved <- key

			return nil
		}).AnyTimes()
	mock.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, key string, value any) error {
			mem.mu.Lock()
			raw, ok := mem.items[key]
			mem.mu.Unlock()

			if !ok {
				return cache.Nil
			}

			return json.Unmarshal(raw, value)
		}).AnyTimes()

	return mock, mem
}

func (m *memoryCache) waitSaved(t *testing.T) string {
	t.Helper()

	select {
	case key := <-m.saved:
		return key
	case <-time.After(time.Second):
		t.Fatal("cache was never written")

		return ""
	}
}

func TestAppointmentService_Get_ForbiddenReadKeepsCacheIntact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	redisCache, mem := newMemoryCache(ctrl)

	f := &fixture{
		repo:   mocks.NewMockAppointment(ctrl),
		sink:   mocks.NewMockSink(ctrl),
		locker: cacheMocks.NewMockLocker(ctrl),
		cache:  redisCache,
		clock:  &fixedClock{now: today},
	}

	cfg := &config.Config{}
	cfg.Booking.MaxPerDay = 3
	cfg.Cache.TTL = 60

	svc := f.build(cfg)

	f.repo.EXPECT().Load(gomock.Any(), "appt-1").Return(pending(), nil).Times(1)

	_, err := svc.Get(context.Background(), model.Caller{ID: "pat-9", Role: constant.RolePatient}, "appt-1")
	assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	assert.Equal(t, "appointment:get:appt-1", mem.waitSaved(t))

	for _, caller := range []model.Caller{patient, doctor, {ID: "admin-1", Role: constant.RoleAdmin}} {
		res, err := svc.Get(context.Background(), caller, "appt-1")

		assert.NoError(t, err, caller.Role)
		assert.Equal(t, "appt-1", res.ID, caller.Role)
		assert.Equal(t, patient.ID, res.PatientID, caller.Role)
		assert.Equal(t, doctor.ID, res.DoctorID, caller.Role)
	}
}

func TestAppointmentService_ListMine(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)
	params := gDto.QueryParams{Page: 1, Limit: 10}

	t.Run("filters by caller and status", func(t *testing.T) {
		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter gDto.FilterGroup) (int, error) {
				where, args := filter.GetWhereClause()

				assert.Contains(t, where, "appointments.patient_id = :patient_id")
				assert.Equal(t, patient.ID, args["patient_id"])
				assert.Equal(t, "ACCEPTED", args["statuses_0"])

				return 1, nil
			})
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Appointment, error) {
				assert.Equal(t, "appointments.start_time", p.SortBy)

				return []model.Appointment{pending()}, nil
			})

		res, err := f.svc.ListMine(context.Background(), patient, params, dto.ListFilter{Status: "accepted"})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.TotalData)
		assert.Len(t, res.Appointments, 1)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := f.svc.ListMine(context.Background(), patient, params, dto.ListFilter{Status: "LATE"})

		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
		assert.Equal(t, "Invalid status filter: LATE", err.Error())
	})
}

func TestAppointmentService_ListForDoctor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)
	params := gDto.QueryParams{Page: 1, Limit: 10}

	t.Run("patients are rejected", func(t *testing.T) {
		_, err := f.svc.ListForDoctor(context.Background(), patient, params, dto.ListFilter{})

		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("bad range", func(t *testing.T) {
		_, err := f.svc.ListForDoctor(context.Background(), doctor, params, dto.ListFilter{From: "yesterday"})

		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})

	t.Run("range is inclusive on start", func(t *testing.T) {
		f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter gDto.FilterGroup) (int, error) {
				where, _ := filter.GetWhereClause()

				assert.Contains(t, where, "appointments.start_time >= :range_from")
				assert.Contains(t, where, "appointments.start_time <= :range_to")

				return 0, nil
			})
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

		res, err := f.svc.ListForDoctor(context.Background(), doctor, params, dto.ListFilter{
			From: "2026-01-10T00:00:00Z",
			To:   "2026-01-11T00:00:00Z",
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.TotalPage)
	})
}

func TestAppointmentService_Export(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl, constant.BookingPolicyStrict, 0, 3)

	t.Run("uploads calendar", func(t *testing.T) {
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Appointment{pending()}, nil)
		f.storage.EXPECT().
			UploadFileBytes(gomock.Any(), "", "exports/pat-1", gomock.Any(), constant.ContentTypeCalendar, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, dir, name, _ string, data []byte) (string, error) {
				assert.True(t, strings.HasSuffix(name, ".ics"))
				assert.Contains(t, string(data), "UID:appt-1@medsys")

				return "https://cdn.example.com/" + dir + "/" + name, nil
			})

		res, err := f.svc.Export(context.Background(), patient)

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Contains(t, res.URL, "exports/pat-1/")
	})

	t.Run("upload fails", func(t *testing.T) {
		f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		f.storage.EXPECT().
			UploadFileBytes(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return("", errors.New("s3 down"))

		_, err := f.svc.Export(context.Background(), patient)

		assert.Error(t, err)
	})
}

func TestRenderCalendar(t *testing.T) {
	accepted := pending()
	accepted.Status = model.StatusAccepted
	reason := "follow-up; bring results, please"
	accepted.Reason = &reason

	out := string(service.RenderCalendar([]model.Appointment{accepted}, today))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
	assert.Contains(t, out, "DTSTART:"+slotFrom.UTC().Format("20060102T150405Z"))
	assert.Contains(t, out, "STATUS:CONFIRMED")
	assert.Contains(t, out, `DESCRIPTION:follow-up\; bring results\, please`)
}
