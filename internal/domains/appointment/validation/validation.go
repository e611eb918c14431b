// Package validation runs the ordered admission checks for a new appointment.
// Each check sees the same read-only Candidate and either passes or stops the
// pipeline with a single failure.
package validation

//go:generate go run go.uber.org/mock/mockgen -source=./validation.go -destination=../mocks/validation_mock.go -package=mocks

import (
	"context"
	"medsys/infras/otel"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	"medsys/shared/constant"
	"medsys/shared/timezone"
	"time"

	"github.com/rs/zerolog/log"
)

// Candidate is the booking under admission.
type Candidate struct {
	Caller      model.Caller
	PatientID   string
	DoctorID    string
	Start       time.Time
	End         time.Time
	// IntervalErr carries a start/end parse failure to the time check.
	IntervalErr error
}

type Check interface {
	Name() string
	Validate(ctx context.Context, candidate Candidate) error
}

// Store is the read capability the non-overlap checks query.
type Store interface {
	ExistsDoctor(ctx context.Context, doctorID string) (bool, error)
	CountOnDay(ctx context.Context, patientID string, dayStart, dayEnd time.Time, statuses []model.Status) (int, error)
}

type Pipeline struct {
	checks []Check
	otel   otel.Otel
}

func NewPipeline(ot otel.Otel, checks ...Check) *Pipeline {
	return &Pipeline{checks: checks, otel: ot}
}

// Default builds the booking pipeline in its fixed order.
func Default(ot otel.Otel, store Store, detector *conflict.Detector, clock timezone.Clock, maxPerDay int) *Pipeline {
	return NewPipeline(ot,
		Identity{},
		RoleOwnership{},
		NewDoctorExists(store),
		NewTimeSanity(clock),
		NewDoctorOverlap(detector),
		NewPatientOverlap(detector),
		NewDailyQuota(store, maxPerDay),
	)
}

// Validate runs every check in order and returns the first failure.
func (p *Pipeline) Validate(ctx context.Context, candidate Candidate) (err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelValidationScopeName, constant.OtelValidationScopeName+".Validate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	for _, check := range p.checks {
		if err = check.Validate(ctx, candidate); err != nil {
			log.Info().Str("check", check.Name()).Err(err).Msg("check -> FAIL")

			return err
		}

		log.Debug().Str("check", check.Name()).Msg("check -> OK")
	}

	return nil
}

// Checks returns the names of the configured checks in execution order.
func (p *Pipeline) Checks() []string {
	names := make([]string, len(p.checks))
	for i, check := range p.checks {
		names[i] = check.Name()
	}

	return names
}
