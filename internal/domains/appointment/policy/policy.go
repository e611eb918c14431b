package policy

//go:generate go run go.uber.org/mock/mockgen -source=./policy.go -destination=../mocks/policy_mock.go -package=mocks

import (
	"context"
	"fmt"
	"medsys/config"
	"medsys/internal/domains/appointment/conflict"
	"medsys/internal/domains/appointment/model"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	msgSlotTaken        = "Slot already taken for this doctor at the requested time."
	msgOverbookingLimit = "Overbooking limit reached for this time slot."
)

// Capacity decides whether a doctor's slot can take one more live booking.
type Capacity interface {
	Admit(ctx context.Context, doctorID string, start, end time.Time) error
	// Capacity is the number of live bookings a single slot may hold.
	Capacity() int
	Name() string
}

type strict struct {
	detector *conflict.Detector
}

type buffered struct {
	detector *conflict.Detector
	buffer   int
}

func NewStrict(detector *conflict.Detector) Capacity {
	return &strict{detector: detector}
}

// NewBuffered allows buffer extra bookings on top of the first one. A negative buffer counts as zero.
func NewBuffered(detector *conflict.Detector, buffer int) Capacity {
	return &buffered{detector: detector, buffer: max(0, buffer)}
}

// New selects the policy named by the booking configuration. Unknown names fall back to strict.
func New(cfg *config.Config, detector *conflict.Detector) Capacity {
	switch cfg.Booking.PolicyName() {
	case constant.BookingPolicyBuffered:
		return NewBuffered(detector, cfg.Booking.Buffer)
	case constant.BookingPolicyStrict, constant.Empty:
		return NewStrict(detector)
	default:
		log.Warn().Str("policy", cfg.Booking.Policy).Msg("unknown booking policy, using strict")

		return NewStrict(detector)
	}
}

func (p *strict) Admit(ctx context.Context, doctorID string, start, end time.Time) error {
	return admit(ctx, p.detector, doctorID, start, end, p.Capacity(), msgSlotTaken)
}

func (p *strict) Capacity() int {
	return 1
}

func (p *strict) Name() string {
	return constant.BookingPolicyStrict
}

func (p *buffered) Admit(ctx context.Context, doctorID string, start, end time.Time) error {
	return admit(ctx, p.detector, doctorID, start, end, p.Capacity(), msgOverbookingLimit)
}

func (p *buffered) Capacity() int {
	return 1 + p.buffer
}

func (p *buffered) Name() string {
	return fmt.Sprintf("%s(%d)", constant.BookingPolicyBuffered, p.buffer)
}

func admit(ctx context.Context, detector *conflict.Detector, doctorID string, start, end time.Time, capacity int, msg string) error {
	count, err := detector.Count(ctx, model.PartyDoctor, doctorID, start, end)
	if err != nil {
		log.Error().Err(err).Str("doctorID", doctorID).Msg("failed to count slot bookings")

		return fmt.Errorf("failed to count slot bookings: %w", err)
	}

	if count >= capacity {
		return failure.Conflict(msg) // nolint:wrapcheck
	}

	return nil
}
