package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, topic string, env Envelope) error
}

type HandlerFunc func(ctx context.Context, topic string, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, topic string, env Envelope) error {
	return f(ctx, topic, env)
}

const defaultReadBackoff = time.Second

// ConsumerLoop reads messages until the context is done. Handler errors and
// malformed messages are logged and skipped. A failed read waits readBackoff
// before the next attempt.
type ConsumerLoop struct {
	consumer    Consumer
	handler     Handler
	logger      *zap.Logger
	readBackoff time.Duration
}

func NewConsumerLoop(consumer Consumer, handler Handler, logger *zap.Logger) *ConsumerLoop {
	return &ConsumerLoop{
		consumer:    consumer,
		handler:     handler,
		logger:      logger,
		readBackoff: defaultReadBackoff,
	}
}

func (c *ConsumerLoop) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started. Waiting for messages...")

loop:
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.logger.Info("Context done, exiting Kafka read loop.", zap.Error(err))
				break
			}
			c.logger.Error("❌ Error reading from Kafka", zap.Error(err), zap.Duration("backoff", c.readBackoff))
			select {
			case <-ctx.Done():
				break loop
			case <-time.After(c.readBackoff):
			}
			continue
		}

		c.process(ctx, *msg)
	}

	c.logger.Info("Consumer loop finished")
	return nil
}

func (c *ConsumerLoop) process(ctx context.Context, msg kafkago.Message) {
	msgCtx := extractTraceContext(ctx, msg.Headers)

	c.logger.Info("📨 Kafka message received",
		zap.String("topic", msg.Topic),
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		c.logger.Error("❌ Invalid JSON in event message",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return
	}

	if err := c.handler.Handle(msgCtx, msg.Topic, env); err != nil {
		c.logger.Error("❌ Failed to handle event",
			zap.Error(err),
			zap.String("topic", msg.Topic),
			zap.String("event_type", env.EventType),
		)
	}
}

// extractTraceContext links the handling span to the producer's trace.
func extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[string(header.Key)] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
