package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"medsys/infras/otel"
	"medsys/infras/postgres"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	userModel "medsys/internal/domains/user/model"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"
	gRepo "medsys/shared/repository"
	"time"

	"github.com/google/uuid"
)

const (
	msgSlotTakenConcurrently = "Slot already taken for this doctor at the requested time."
	msgStatusChanged         = "Appointment status changed by another request, please retry."
	msgNotFound              = "Appointment not found."
)

// insertQuery places the row in the lowest free slot index below :capacity.
// When every index is used it falls back to 0, which the partial unique index
// on (doctor_id, start_time, slot_index) rejects.
const insertQuery = `
INSERT INTO appointments (
	id, patient_id, doctor_id, start_time, end_time, status, reason, slot_index,
	created_at, modified_at, created_by, modified_by
) VALUES (
	:id, :patient_id, :doctor_id, :start_time, :end_time, :status, :reason,
	COALESCE((
		SELECT MIN(s.i)
		FROM generate_series(0, CAST(:capacity AS INTEGER) - 1) AS s(i)
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.doctor_id = :doctor_id
				AND a.start_time = :start_time
				AND a.status IN ('PENDING', 'ACCEPTED')
				AND a.slot_index = s.i
		)
	), 0),
	:created_at, :modified_at, :created_by, :modified_by
) RETURNING slot_index`

const transitionQuery = `
UPDATE appointments
SET status = :to_status, modified_at = :modified_at, modified_by = :modified_by
WHERE id = :id AND status = :from_status`

type Appointment interface {
	CountOverlapping(ctx context.Context, party model.Party, partyID string, start, end time.Time, statuses []model.Status) (int, error)
	CountOnDay(ctx context.Context, patientID string, dayStart, dayEnd time.Time, statuses []model.Status) (int, error)
	ExistsDoctor(ctx context.Context, doctorID string) (bool, error)
	Load(ctx context.Context, id string) (model.Appointment, error)
	Save(ctx context.Context, appt model.Appointment, capacity int) (model.Appointment, error)
	TransitionStatus(ctx context.Context, id string, from, to model.Status, by string, at time.Time) error
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Appointment, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Appointment]
	users gRepo.Repository[userModel.User]
	otel  otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Appointment {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Appointment](model.EntityName, model.TableName, model.FieldID, db, otel),
		users:      gRepo.NewRepository[userModel.User](userModel.EntityName, userModel.TableName, userModel.FieldID, db, otel),
		otel:       otel,
	}
}

func (r *repositoryImpl) CountOverlapping(ctx context.Context, party model.Party, partyID string, start, end time.Time, statuses []model.Status) (int, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".appointment.CountOverlapping")
	defer scope.End()

	scope.SetAttribute("party", string(party))

	return r.Count(ctx, conflict.OverlapFilter(party, partyID, start, end, statuses)) //nolint:wrapcheck
}

func (r *repositoryImpl) CountOnDay(ctx context.Context, patientID string, dayStart, dayEnd time.Time, statuses []model.Status) (int, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".appointment.CountOnDay")
	defer scope.End()

	return r.Count(ctx, DayFilter(patientID, dayStart, dayEnd, statuses)) //nolint:wrapcheck
}

// ExistsDoctor is false for ids that are not UUIDs; the column type would reject them.
func (r *repositoryImpl) ExistsDoctor(ctx context.Context, doctorID string) (bool, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".appointment.ExistsDoctor")
	defer scope.End()

	if !ValidID(doctorID) {
		return false, nil
	}

	return r.users.Exist(ctx, ActiveDoctorFilter(doctorID)) //nolint:wrapcheck
}

func (r *repositoryImpl) Load(ctx context.Context, id string) (model.Appointment, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".appointment.Load")
	defer scope.End()

	if !ValidID(id) {
		return model.Appointment{}, failure.NotFound(msgNotFound) // nolint:wrapcheck
	}

	appt, err := r.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		return appt, err //nolint:wrapcheck
	}

	if appt.ID == "" {
		return appt, failure.NotFound(msgNotFound) // nolint:wrapcheck
	}

	return appt, nil
}

func (r *repositoryImpl) Save(ctx context.Context, appt model.Appointment, capacity int) (model.Appointment, error) {
	args := map[string]any{
		model.FieldID:            appt.ID,
		model.FieldPatientID:     appt.PatientID,
		model.FieldDoctorID:      appt.DoctorID,
		model.FieldStartTime:     appt.StartTime,
		model.FieldEndTime:       appt.EndTime,
		model.FieldStatus:        string(appt.Status),
		model.FieldReason:        appt.Reason,
		"capacity":               max(1, capacity),
		constant.FieldCreatedAt:  appt.CreatedAt,
		constant.FieldModifiedAt: appt.ModifiedAt,
		constant.FieldCreatedBy:  appt.CreatedBy,
		constant.FieldModifiedBy: appt.ModifiedBy,
	}

	err := r.QueryRow(ctx, "Save", insertQuery, args, &appt.SlotIndex)
	if gRepo.IsUniqueViolation(err) {
		return appt, failure.Conflict(msgSlotTakenConcurrently) // nolint:wrapcheck
	}

	if err != nil {
		return appt, err //nolint:wrapcheck
	}

	return appt, nil
}

// TransitionStatus is a compare-and-set on status; losing the race is a conflict.
func (r *repositoryImpl) TransitionStatus(ctx context.Context, id string, from, to model.Status, by string, at time.Time) error {
	affected, err := r.Exec(ctx, "TransitionStatus", transitionQuery, TransitionArgs(id, from, to, by, at))
	if err != nil {
		return err //nolint:wrapcheck
	}

	if affected == 0 {
		return failure.Conflict(msgStatusChanged) // nolint:wrapcheck
	}

	return nil
}

// ValidID reports whether id can be compared against a UUID column.
func ValidID(id string) bool {
	return uuid.Validate(id) == nil
}

// DayFilter selects a patient's rows in statuses starting inside [dayStart,dayEnd).
func DayFilter(patientID string, dayStart, dayEnd time.Time, statuses []model.Status) gDto.FilterGroup {
	return gDto.And(
		gDto.Filter{Field: model.FieldPatientID, Value: patientID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		gDto.Filter{ArgName: "day_start", Field: model.FieldStartTime, Value: dayStart, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
		gDto.Filter{ArgName: "day_end", Field: model.FieldStartTime, Value: dayEnd, Operator: gDto.FilterOperatorLess, Table: model.TableName},
		conflict.StatusFilter(statuses),
	)
}

func ActiveDoctorFilter(doctorID string) gDto.FilterGroup {
	return gDto.And(
		gDto.Filter{Field: userModel.FieldID, Value: doctorID, Operator: gDto.FilterOperatorEq, Table: userModel.TableName},
		gDto.Filter{Field: userModel.FieldRole, Value: constant.RoleDoctor, Operator: gDto.FilterOperatorEq, Table: userModel.TableName},
		gDto.Filter{Field: userModel.FieldActive, Value: true, Operator: gDto.FilterOperatorEq, Table: userModel.TableName},
	)
}

// TransitionArgs binds transitionQuery.
func TransitionArgs(id string, from, to model.Status, by string, at time.Time) map[string]any {
	return map[string]any{
		model.FieldID:            id,
		"from_status":            string(from),
		"to_status":              string(to),
		constant.FieldModifiedAt: at,
		constant.FieldModifiedBy: by,
	}
}
