package di

import (
	"medsys/config"
	"medsys/infras/otel"
	apptConflict "medsys/internal/domains/appointment/conflict"
	apptPolicy "medsys/internal/domains/appointment/policy"
	apptRepository "medsys/internal/domains/appointment/repository"
	apptValidation "medsys/internal/domains/appointment/validation"
	"medsys/shared/timezone"
)

func provideConflictDetector(repo apptRepository.Appointment) *apptConflict.Detector {
	return apptConflict.NewDetector(repo)
}

func provideValidationPipeline(ot otel.Otel, repo apptRepository.Appointment, detector *apptConflict.Detector, clock timezone.Clock, cfg *config.Config) *apptValidation.Pipeline {
	return apptValidation.Default(ot, repo, detector, clock, cfg.Booking.MaxPerDay)
}

func provideCapacityPolicy(cfg *config.Config, detector *apptConflict.Detector) apptPolicy.Capacity {
	return apptPolicy.New(cfg, detector)
}
