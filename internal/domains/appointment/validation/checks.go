package validation

import (
	"context"
	"fmt"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	msgNotLoggedIn       = "You must be logged in."
	msgOnlyPatients      = "Only patients can schedule appointments."
	msgOwnAccountOnly    = "You can only schedule for your own account."
	msgDoctorMissing     = "Doctor does not exist."
	msgTimesRequired     = "startTime and endTime must be provided"
	msgStartBeforeEnd    = "startTime must be before endTime"
	msgPastSchedule      = "Cannot schedule in the past."
	msgDoctorUnavailable = "Selected doctor is not available in this time interval."
	msgPatientBusy       = "You already have an appointment at this time."
	msgDailyLimitReached = "Daily limit reached for appointments."
)

type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Validate(_ context.Context, candidate Candidate) error {
	if !candidate.Caller.Authenticated() {
		return failure.Unauthorized(msgNotLoggedIn) // nolint:wrapcheck
	}

	return nil
}

type RoleOwnership struct{}

func (RoleOwnership) Name() string { return "role-ownership" }

func (RoleOwnership) Validate(_ context.Context, candidate Candidate) error {
	if candidate.Caller.Role != constant.RolePatient {
		return failure.Forbidden(msgOnlyPatients) // nolint:wrapcheck
	}

	if candidate.PatientID != candidate.Caller.ID {
		return failure.Forbidden(msgOwnAccountOnly) // nolint:wrapcheck
	}

	return nil
}

type DoctorExists struct {
	store Store
}

func NewDoctorExists(store Store) DoctorExists {
	return DoctorExists{store: store}
}

func (DoctorExists) Name() string { return "doctor-exists" }

func (c DoctorExists) Validate(ctx context.Context, candidate Candidate) error {
	if candidate.DoctorID == "" {
		return failure.BadRequestFromString(msgDoctorMissing) // nolint:wrapcheck
	}

	exists, err := c.store.ExistsDoctor(ctx, candidate.DoctorID)
	if err != nil {
		log.Error().Err(err).Str("doctorID", candidate.DoctorID).Msg("failed to look up doctor")

		return fmt.Errorf("failed to look up doctor: %w", err)
	}

	if !exists {
		return failure.BadRequestFromString(msgDoctorMissing) // nolint:wrapcheck
	}

	return nil
}

type TimeSanity struct {
	clock timezone.Clock
}

func NewTimeSanity(clock timezone.Clock) TimeSanity {
	return TimeSanity{clock: clock}
}

func (TimeSanity) Name() string { return "time-sanity" }

func (c TimeSanity) Validate(_ context.Context, candidate Candidate) error {
	if candidate.IntervalErr != nil {
		return failure.BadRequest(candidate.IntervalErr) // nolint:wrapcheck
	}

	if candidate.Start.IsZero() || candidate.End.IsZero() {
		return failure.BadRequestFromString(msgTimesRequired) // nolint:wrapcheck
	}

	if !candidate.Start.Before(candidate.End) {
		return failure.BadRequestFromString(msgStartBeforeEnd) // nolint:wrapcheck
	}

	if candidate.Start.Before(c.clock.Now()) {
		return failure.BadRequestFromString(msgPastSchedule) // nolint:wrapcheck
	}

	return nil
}

type DoctorOverlap struct {
	detector *conflict.Detector
}

func NewDoctorOverlap(detector *conflict.Detector) DoctorOverlap {
	return DoctorOverlap{detector: detector}
}

func (DoctorOverlap) Name() string { return "doctor-overlap" }

func (c DoctorOverlap) Validate(ctx context.Context, candidate Candidate) error {
	return noOverlap(ctx, c.detector, model.PartyDoctor, candidate.DoctorID, candidate, msgDoctorUnavailable)
}

type PatientOverlap struct {
	detector *conflict.Detector
}

func NewPatientOverlap(detector *conflict.Detector) PatientOverlap {
	return PatientOverlap{detector: detector}
}

func (PatientOverlap) Name() string { return "patient-overlap" }

func (c PatientOverlap) Validate(ctx context.Context, candidate Candidate) error {
	return noOverlap(ctx, c.detector, model.PartyPatient, candidate.PatientID, candidate, msgPatientBusy)
}

func noOverlap(ctx context.Context, detector *conflict.Detector, party model.Party, partyID string, candidate Candidate, msg string) error {
	count, err := detector.Count(ctx, party, partyID, candidate.Start, candidate.End)
	if err != nil {
		log.Error().Err(err).Str("party", string(party)).Str("partyID", partyID).Msg("failed to count overlapping appointments")

		return err
	}

	if count > 0 {
		return failure.Conflict(msg) // nolint:wrapcheck
	}

	return nil
}

// DailyQuota caps live appointments per patient on the local calendar day of start.
type DailyQuota struct {
	store Store
	limit int
}

func NewDailyQuota(store Store, limit int) DailyQuota {
	return DailyQuota{store: store, limit: limit}
}

func (DailyQuota) Name() string { return "daily-quota" }

func (c DailyQuota) Validate(ctx context.Context, candidate Candidate) error {
	dayStart, dayEnd := timezone.DayBounds(candidate.Start)

	count, err := c.store.CountOnDay(ctx, candidate.PatientID, dayStart, dayEnd, model.LiveStatuses())
	if err != nil {
		log.Error().Err(err).Str("patientID", candidate.PatientID).Msg("failed to count daily appointments")

		return fmt.Errorf("failed to count daily appointments: %w", err)
	}

	if count >= c.limit {
		return failure.Conflict(msgDailyLimitReached) // nolint:wrapcheck
	}

	return nil
}
