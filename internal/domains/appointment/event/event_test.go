package event_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"medsys/config"
	"medsys/infras/kafka"
	kafkaMocks "medsys/infras/kafka/mocks"
	otelMocks "medsys/infras/otel/mocks"
	"medsys/internal/domains/appointment/event"
	"medsys/internal/domains/appointment/model"
)

func sampleAppointment() model.Appointment {
	start := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)

	return model.Appointment{
		ID:        "appt-1",
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.StatusPending,
	}
}

func TestKafkaSink_Emit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := kafkaMocks.NewMockClient(ctrl)
	sink := event.NewKafkaSink(client, "appointment-events", otelMocks.NewOtel())

	evt := event.FromAppointment(event.KindCreated, sampleAppointment(), time.Now())

	t.Run("keyed by appointment id", func(t *testing.T) {
		client.EXPECT().
			SendMessages(gomock.Any(), "appointment-events", kafka.Message{Key: "appt-1", Value: evt}).
			Return(nil)

		assert.NoError(t, sink.Emit(context.Background(), evt))
	})

	t.Run("broker error is returned", func(t *testing.T) {
		client.EXPECT().
			SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("broker down"))

		assert.Error(t, sink.Emit(context.Background(), evt))
	})
}

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := kafkaMocks.NewMockClient(ctrl)
	evt := event.FromAppointment(event.KindAccepted, sampleAppointment(), time.Now())

	for _, sinkName := range []string{"log", "noop", "", "carrier-pigeon"} {
		t.Run("sink "+sinkName, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Event.Sink = sinkName

			assert.NoError(t, event.New(cfg, client, otelMocks.NewOtel()).Emit(context.Background(), evt))
		})
	}

	t.Run("kafka", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Event.Sink = "KAFKA"
		cfg.Kafka.Topic.AppointmentEvents = "topic-a"

		client.EXPECT().SendMessages(gomock.Any(), "topic-a", gomock.Any()).Return(nil)

		assert.NoError(t, event.New(cfg, client, otelMocks.NewOtel()).Emit(context.Background(), evt))
	})
}

func TestNew_LogSink(t *testing.T) {
	var buf bytes.Buffer

	previous := log.Logger
	log.Logger = zerolog.New(&buf)

	t.Cleanup(func() { log.Logger = previous })

	for _, sinkName := range []string{"log", "LOG", "carrier-pigeon"} {
		t.Run(sinkName, func(t *testing.T) {
			buf.Reset()

			cfg := &config.Config{}
			cfg.Event.Sink = sinkName

			sink := event.New(cfg, nil, otelMocks.NewOtel())
			assert.Equal(t, event.NewLogSink(), sink)

			assert.NoError(t, sink.Emit(context.Background(), event.FromAppointment(event.KindDenied, sampleAppointment(), time.Now())))
			assert.Contains(t, buf.String(), `"type":"APPOINTMENT_DENIED"`)
			assert.Contains(t, buf.String(), `"appointmentID":"appt-1"`)
		})
	}
}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status model.Status
		want   event.Kind
	}{
		{status: model.StatusPending, want: event.KindCreated},
		{status: model.StatusAccepted, want: event.KindAccepted},
		{status: model.StatusDenied, want: event.KindDenied},
		{status: model.StatusCancelled, want: event.KindCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			kind, ok := event.KindForStatus(tt.status)

			assert.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}

	_, ok := event.KindForStatus("ARCHIVED")
	assert.False(t, ok)
}
