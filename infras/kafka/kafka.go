package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"medsys/config"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const writeTimeout = 10 * time.Second

type Message struct {
	Key   string
	Value any
}

func (m *Message) ToKafkaMessage() (kafkaGo.Message, error) {
	jsonValue, err := json.Marshal(m.Value)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal message value to JSON")

		return kafkaGo.Message{}, fmt.Errorf("failed to marshal message value to JSON: %w", err)
	}

	return kafkaGo.Message{
		Key:   []byte(m.Key),
		Value: jsonValue,
	}, nil
}

// Decode unmarshals the JSON value of msg into T.
func Decode[T any](msg kafkaGo.Message) (T, error) {
	var value T

	if err := json.Unmarshal(msg.Value, &value); err != nil {
		log.Error().Err(err).Str("key", string(msg.Key)).Msg("Failed to unmarshal Kafka message value from JSON")

		return value, fmt.Errorf("failed to unmarshal Kafka message value from JSON: %w", err)
	}

	return value, nil
}

// Handler processes one consumed message. The offset is committed only when it returns nil.
type Handler func(ctx context.Context, message kafkaGo.Message) error

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	Consume(ctx context.Context, consumerGroup, topic string, handler Handler)
	Close() error
}

type kafkaClientImpl struct {
	config    *config.Config
	dialer    *kafkaGo.Dialer
	transport *kafkaGo.Transport

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

func New(config *config.Config) Client {
	var mechanism sasl.Mechanism

	if config.Kafka.SASL.Username != "" {
		mechanism = plain.Mechanism{
			Username: config.Kafka.SASL.Username,
			Password: config.Kafka.SASL.Password,
		}
	}

	log.Info().Strs("brokers", config.Kafka.Brokers).Msg("Kafka client initialized")

	return &kafkaClientImpl{
		config: config,
		dialer: &kafkaGo.Dialer{
			DualStack:     true,
			SASLMechanism: mechanism,
		},
		transport: &kafkaGo.Transport{
			SASL: mechanism,
		},
		writers: map[string]*kafkaGo.Writer{},
	}
}

func (k *kafkaClientImpl) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.writers[topic]; ok {
		return w
	}

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(k.config.Kafka.Brokers...),
		Topic:                  topic,
		Transport:              k.transport,
		Balancer:               &kafkaGo.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkaGo.RequireOne,
		WriteTimeout:           writeTimeout,
	}
	k.writers[topic] = w

	return w
}

func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) (err error) {
	msgs := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		msg, err := message.ToKafkaMessage()
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to convert message to Kafka message.")

			return fmt.Errorf("failed to convert message to Kafka message: %w", err)
		}

		msgs = append(msgs, msg)
	}

	err = k.writer(topic).WriteMessages(ctx, msgs...)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to send message to Kafka.")

		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Int("count", len(msgs)).Msg("Sent message successfully.")

	return nil
}

// Consume blocks until ctx is done, handing each message to handler in order.
func (k *kafkaClientImpl) Consume(ctx context.Context, consumerGroup, topic string, handler Handler) {
	if topic == "" {
		log.Error().Msg("Topic name cannot be empty when creating Kafka reader")

		return
	}

	groupID := k.config.Kafka.ConsumerGroup
	if consumerGroup != "" {
		groupID = consumerGroup
	}

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     k.config.Kafka.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		Dialer:      k.dialer,
		StartOffset: kafkaGo.FirstOffset,
	})

	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka reader.")
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info().Str("topic", topic).Msg("Consumer context done.")

				return
			}

			log.Error().Err(err).Str("topic", topic).Msg("Failed to read message from Kafka.")

			continue
		}

		log.Debug().Str("topic", topic).Str("key", string(msg.Key)).Msg("Received message from Kafka.")

		if err := handler(ctx, msg); err != nil {
			log.Error().Err(err).Str("topic", topic).Str("key", string(msg.Key)).Msg("Failed to handle Kafka message.")

			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to commit Kafka message.")
		}
	}
}

func (k *kafkaClientImpl) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error

	for topic, w := range k.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close writer for %s: %w", topic, err))
		}
	}

	return errors.Join(errs...)
}
