package event

import (
	"context"
	"medsys/config"
	"medsys/infras/kafka"
	"medsys/infras/otel"
	apptEvent "medsys/internal/domains/appointment/event"
	notificationService "medsys/internal/domains/notification/service"
	"medsys/shared/constant"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

const otelAttrEventType = "event.type"

// Consumer feeds appointment events from Kafka into the notification service.
type Consumer struct {
	client       kafka.Client
	notification notificationService.Notification
	config       *config.Config
	otel         otel.Otel
}

func NewConsumer(client kafka.Client, notification notificationService.Notification, config *config.Config, otel otel.Otel) *Consumer {
	return &Consumer{
		client:       client,
		notification: notification,
		config:       config,
		otel:         otel,
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	topic := c.config.Kafka.Topic.AppointmentEvents

	log.Info().Str("topic", topic).Str("group", c.config.Kafka.ConsumerGroup).Msg("starting appointment event consumer")

	c.client.Consume(ctx, c.config.Kafka.ConsumerGroup, topic, c.Handle)

	if err := c.client.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close kafka client")
	}
}

// Handle processes a single message. Undecodable payloads are logged and skipped so they get committed.
func (c *Consumer) Handle(ctx context.Context, message kafkaGo.Message) (err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelConsumerScopeName, constant.OtelConsumerScopeName+".AppointmentEvent")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	evt, err := kafka.Decode[apptEvent.Event](message)
	if err != nil {
		log.Warn().Err(err).Str("key", string(message.Key)).Msg("skipping malformed appointment event")

		return nil
	}

	scope.SetAttribute(otelAttrEventType, string(evt.Type))

	return c.notification.HandleAppointmentEvent(ctx, evt) //nolint:wrapcheck
}
