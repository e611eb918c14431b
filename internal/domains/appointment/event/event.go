package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=../mocks/event_mock.go -package=mocks

import (
	"context"
	"fmt"
	"medsys/config"
	"medsys/infras/kafka"
	"medsys/infras/otel"
	"medsys/internal/domains/appointment/model"
	"medsys/shared/constant"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	KindCreated   Kind = "APPOINTMENT_CREATED"
	KindAccepted  Kind = "APPOINTMENT_ACCEPTED"
	KindDenied    Kind = "APPOINTMENT_DENIED"
	KindCancelled Kind = "APPOINTMENT_CANCELLED"
)

// Event is the lifecycle message published after an appointment changes.
type Event struct {
	Type          Kind      `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Reason        *string   `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func FromAppointment(kind Kind, appt model.Appointment, occurredAt time.Time) Event {
	return Event{
		Type:          kind,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Reason:        appt.Reason,
		OccurredAt:    occurredAt,
	}
}

// KindForStatus maps a decided or cancelled status to its event kind.
func KindForStatus(status model.Status) (Kind, bool) {
	switch status {
	case model.StatusAccepted:
		return KindAccepted, true
	case model.StatusDenied:
		return KindDenied, true
	case model.StatusCancelled:
		return KindCancelled, true
	case model.StatusPending:
		return KindCreated, true
	default:
		return "", false
	}
}

type Sink interface {
	Emit(ctx context.Context, evt Event) error
}

type kafkaSink struct {
	client kafka.Client
	topic  string
	otel   otel.Otel
}

type logSink struct{}

type noopSink struct{}

// New picks the sink configured by EVENT_SINK. Unknown values fall back to the log sink.
func New(cfg *config.Config, client kafka.Client, ot otel.Otel) Sink {
	switch strings.ToLower(cfg.Event.Sink) {
	case constant.EventSinkKafka:
		return NewKafkaSink(client, cfg.Kafka.Topic.AppointmentEvents, ot)
	case constant.EventSinkNoop:
		return noopSink{}
	case constant.EventSinkLog:
		return NewLogSink()
	default:
		log.Warn().Str("sink", cfg.Event.Sink).Msg("unknown event sink, using log")

		return NewLogSink()
	}
}

func NewKafkaSink(client kafka.Client, topic string, ot otel.Otel) Sink {
	return &kafkaSink{client: client, topic: topic, otel: ot}
}

func NewLogSink() Sink {
	return logSink{}
}

func (s *kafkaSink) Emit(ctx context.Context, evt Event) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Emit")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttribute("event.type", string(evt.Type))

	err = s.client.SendMessages(ctx, s.topic, kafka.Message{Key: evt.AppointmentID, Value: evt})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}

	return nil
}

func (logSink) Emit(_ context.Context, evt Event) error {
	log.Info().
		Str("type", string(evt.Type)).
		Str("appointmentID", evt.AppointmentID).
		Str("patientID", evt.PatientID).
		Str("doctorID", evt.DoctorID).
		Time("startTime", evt.StartTime).
		Msg("appointment event")

	return nil
}

func (noopSink) Emit(context.Context, Event) error {
	return nil
}
