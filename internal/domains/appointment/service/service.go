package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Appointment=MockAppointmentService

import (
	"context"
	"errors"
	"fmt"
	"medsys/config"
	"medsys/infras/otel"
	"medsys/infras/s3"
	"medsys/internal/domains/appointment/event"
	"medsys/internal/domains/appointment/model"
	"medsys/internal/domains/appointment/model/dto"
	"medsys/internal/domains/appointment/policy"
	"medsys/internal/domains/appointment/repository"
	"medsys/internal/domains/appointment/validation"
	"medsys/shared"
	"medsys/shared/cache"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/failure"
	gModel "medsys/shared/model"
	"medsys/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cachePrefix        = "appointment"
	cacheGetAppt       = "appointment:get"
	cacheListAppt      = "appointment:list"
	cacheCountAppt     = "appointment:count"
	lockPrefixDoctor   = "appointment:doctor"
	msgLockBusy        = "Another booking for this doctor is in progress, please retry."
	msgOnlyPending     = "Only pending appointments can be changed."
	msgDecideOwn       = "You can only decide your own appointments."
	msgCancelOwn       = "You can only cancel your own appointments."
	msgOnlyCancellable = "Only pending or accepted appointments can be cancelled."
	msgCancelPast      = "Cannot cancel past appointments."
	msgViewOwn         = "You can only view your own appointments."
	msgOnlyDoctors     = "Only doctors can list their schedule."
)

type Appointment interface {
	Create(ctx context.Context, caller model.Caller, req dto.CreateAppointmentRequest) (dto.AppointmentResponse, error)
	Decide(ctx context.Context, caller model.Caller, id, decision string) (dto.AppointmentResponse, error)
	Cancel(ctx context.Context, caller model.Caller, id string) (dto.AppointmentResponse, error)
	Get(ctx context.Context, caller model.Caller, id string) (dto.AppointmentResponse, error)
	ListMine(ctx context.Context, caller model.Caller, params gDto.QueryParams, filter dto.ListFilter) (dto.GetAppointmentsResponse, error)
	ListForDoctor(ctx context.Context, caller model.Caller, params gDto.QueryParams, filter dto.ListFilter) (dto.GetAppointmentsResponse, error)
	ListAll(ctx context.Context, params gDto.QueryParams, filter dto.ListFilter) (dto.GetAppointmentsResponse, error)
	Export(ctx context.Context, caller model.Caller) (dto.ExportResponse, error)
}

type serviceImpl struct {
	repo     repository.Appointment
	pipeline *validation.Pipeline
	policy   policy.Capacity
	sink     event.Sink
	locker   cache.Locker
	cache    cache.RedisCache
	storage  s3.S3
	clock    timezone.Clock
	cfg      *config.Config
	otel     otel.Otel
}

func New(
	repo repository.Appointment,
	pipeline *validation.Pipeline,
	capacity policy.Capacity,
	sink event.Sink,
	locker cache.Locker,
	redisCache cache.RedisCache,
	storage s3.S3,
	clock timezone.Clock,
	cfg *config.Config,
	otel otel.Otel,
) Appointment {
	log.Info().Str("policy", capacity.Name()).Strs("checks", pipeline.Checks()).Msg("booking engine ready")

	return &serviceImpl{
		repo:     repo,
		pipeline: pipeline,
		policy:   capacity,
		sink:     sink,
		locker:   locker,
		cache:    redisCache,
		storage:  storage,
		clock:    clock,
		cfg:      cfg,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, caller model.Caller, req dto.CreateAppointmentRequest) (res dto.AppointmentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	start, end, intervalErr := req.Interval()

	candidate := validation.Candidate{
		Caller:      caller,
		PatientID:   req.RequestedPatient(caller.ID),
		DoctorID:    req.DoctorID,
		Start:       start,
		End:         end,
		IntervalErr: intervalErr,
	}

	if err = s.pipeline.Validate(ctx, candidate); err != nil {
		return res, err
	}

	var saved model.Appointment

	err = s.locker.WithLock(ctx, shared.BuildCacheKey(lockPrefixDoctor, candidate.DoctorID), func(ctx context.Context) error {
		if err := s.policy.Admit(ctx, candidate.DoctorID, start, end); err != nil {
			return err //nolint:wrapcheck
		}

		var saveErr error

		now := s.clock.Now()

		saved, saveErr = s.repo.Save(ctx, model.Appointment{
			ID:        uuid.NewString(),
			PatientID: candidate.PatientID,
			DoctorID:  candidate.DoctorID,
			StartTime: start,
			EndTime:   end,
			Status:    model.StatusPending,
			Reason:    req.ReasonPtr(),
			Metadata:  gModel.NewMetadata(caller.ID, now),
		}, s.policy.Capacity())

		return saveErr //nolint:wrapcheck
	})
	if errors.Is(err, cache.ErrLockNotAcquired) {
		return res, failure.Conflict(msgLockBusy) // nolint:wrapcheck
	}

	if err != nil {
		if isFailure(err) {
			return res, err
		}

		log.Error().Err(err).Str("doctorID", candidate.DoctorID).Msg("failed to create appointment")

		return res, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.emit(ctx, event.KindCreated, saved)
	s.invalidate(ctx)

	res.FromModel(saved)

	return res, nil
}

func (s *serviceImpl) Decide(ctx context.Context, caller model.Caller, id, decision string) (res dto.AppointmentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Decide")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	appt, err := s.repo.Load(ctx, id)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	if appt.Status != model.StatusPending {
		return res, failure.Conflict(msgOnlyPending) // nolint:wrapcheck
	}

	if caller.ID != appt.DoctorID {
		return res, failure.Forbidden(msgDecideOwn) // nolint:wrapcheck
	}

	status, err := ParseDecision(decision)
	if err != nil {
		return res, err
	}

	if err = s.transition(ctx, &appt, status, caller.ID); err != nil {
		return res, err
	}

	res.FromModel(appt)

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, caller model.Caller, id string) (res dto.AppointmentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	appt, err := s.repo.Load(ctx, id)
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	if caller.ID != appt.PatientID {
		return res, failure.Forbidden(msgCancelOwn) // nolint:wrapcheck
	}

	if !appt.Status.IsLive() {
		return res, failure.Conflict(msgOnlyCancellable) // nolint:wrapcheck
	}

	if !appt.StartTime.After(s.clock.Now()) {
		return res, failure.Conflict(msgCancelPast) // nolint:wrapcheck
	}

	if err = s.transition(ctx, &appt, model.StatusCancelled, caller.ID); err != nil {
		return res, err
	}

	res.FromModel(appt)

	return res, nil
}

// transition persists a compare-and-set status change and announces it.
func (s *serviceImpl) transition(ctx context.Context, appt *model.Appointment, to model.Status, by string) error {
	now := s.clock.Now()

	if err := s.repo.TransitionStatus(ctx, appt.ID, appt.Status, to, by, now); err != nil {
		if isFailure(err) {
			return err
		}

		log.Error().Err(err).Str("appointmentID", appt.ID).Str("to", string(to)).Msg("failed to update appointment status")

		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	appt.Status = to
	appt.Touch(by, now)

	if kind, ok := event.KindForStatus(to); ok {
		s.emit(ctx, kind, *appt)
	}

	s.invalidate(ctx)

	return nil
}

// emit hands the event to the sink. Sink failures are logged and never reach the caller.
func (s *serviceImpl) emit(ctx context.Context, kind event.Kind, appt model.Appointment) {
	if err := s.sink.Emit(ctx, event.FromAppointment(kind, appt, s.clock.Now())); err != nil {
		log.Error().Err(err).Str("type", string(kind)).Str("appointmentID", appt.ID).Msg("failed to emit appointment event")
	}
}

func (s *serviceImpl) invalidate(ctx context.Context) {
	go func() {
		c := context.WithoutCancel(ctx)

		shared.InvalidateCaches(c, s.cache, cachePrefix)
	}()
}

func isFailure(err error) bool {
	var fail *failure.Failure

	return errors.As(err, &fail)
}
