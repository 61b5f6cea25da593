package events

import (
	"context"
	"fmt"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/ecommerce-microservices/internal/config"
)

// Topics shared by the services.
const (
	TopicOrderEvents   = "order-events"
	TopicProductEvents = "product-events"
	TopicUserEvents    = "user-events"
)

type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

type Consumer interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}

// NewProducer returns a traced writer, or nil when kafka is disabled. The
// writer has no fixed topic: every message names its own.
func NewProducer(cfg config.KafkaConfig, tp trace.TracerProvider, clientID string) (Producer, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers()...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				attribute.String("messaging.kafka.client_id", clientID),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka writer: %w", err)
	}

	return writer, nil
}

// NewConsumer returns a traced group reader over topics, or nil when kafka is
// disabled.
func NewConsumer(cfg config.KafkaConfig, topics []string) (Consumer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("kafka consumer requires a group id")
	}

	baseReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers(),
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		StartOffset: kafka.LastOffset,
	})

	reader, err := otelkafka.NewReader(baseReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka reader: %w", err)
	}

	return reader, nil
}
