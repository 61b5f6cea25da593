package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Envelope is the wire format of every event on the bus.
type Envelope struct {
	Service   string          `json:"service"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type Status string

const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Result reports what happened to one emitted event. Emission never fails the
// caller; callers log the result instead.
type Result struct {
	Topic     string
	EventType string
	Key       string
	Status    Status
	Err       error
}

// Log writes the result at a level matching its status.
func (r Result) Log(logger *zap.Logger) {
	fields := []zap.Field{
		zap.String("topic", r.Topic),
		zap.String("event_type", r.EventType),
		zap.String("key", r.Key),
	}

	switch r.Status {
	case StatusPublished:
		logger.Info("📤 Event published", fields...)
	case StatusSkipped:
		logger.Debug("Kafka disabled or producer not available, skipping event", fields...)
	default:
		logger.Error("❌ Failed to publish event", append(fields, zap.Error(r.Err))...)
	}
}

type Emitter interface {
	Emit(ctx context.Context, topic, eventType, key string, payload any) Result
}

// KafkaEmitter publishes enveloped events through a Producer. A nil producer
// turns every Emit into a skipped no-op.
type KafkaEmitter struct {
	producer Producer
	service  string
	now      func() time.Time
	counter  metric.Int64Counter
}

func NewKafkaEmitter(producer Producer, service string) *KafkaEmitter {
	counter, _ := otel.Meter(service).Int64Counter(
		"events.emitted",
		metric.WithDescription("Domain events handed to the event bus, by status"),
	)

	return &KafkaEmitter{
		producer: producer,
		service:  service,
		now:      func() time.Time { return time.Now().UTC() },
		counter:  counter,
	}
}

func (e *KafkaEmitter) Emit(ctx context.Context, topic, eventType, key string, payload any) Result {
	result := Result{Topic: topic, EventType: eventType, Key: key}

	if e.producer == nil {
		result.Status = StatusSkipped
		e.record(ctx, result)
		return result
	}

	value, err := e.encode(eventType, payload)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		e.record(ctx, result)
		return result
	}

	msg := kafka.Message{
		Topic: topic,
		Value: value,
	}
	if key != "" {
		msg.Key = []byte(key)
	}

	if err := e.producer.WriteMessage(ctx, msg); err != nil {
		result.Status = StatusFailed
		result.Err = err
		e.record(ctx, result)
		return result
	}

	result.Status = StatusPublished
	e.record(ctx, result)
	return result
}

func (e *KafkaEmitter) encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{
		Service:   e.service,
		EventType: eventType,
		Timestamp: e.now(),
		Data:      data,
	})
}

func (e *KafkaEmitter) record(ctx context.Context, r Result) {
	if e.counter == nil {
		return
	}
	e.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", r.Topic),
		attribute.String("event_type", r.EventType),
		attribute.String("status", string(r.Status)),
	))
}

// Close releases the producer, if any.
func (e *KafkaEmitter) Close() error {
	if e.producer == nil {
		return nil
	}
	return e.producer.Close()
}
