package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/observability"
)

// Sender hands a notification to its channel. delivered reports whether the
// channel also confirmed delivery.
type Sender interface {
	Send(ctx context.Context, n *Notification) (delivered bool, err error)
}

// logSender is the stand-in for a real provider: it logs the message and
// reports success.
type logSender struct {
	channel  string
	confirms bool
	logger   *zap.Logger
}

func (s logSender) Send(_ context.Context, n *Notification) (bool, error) {
	fields := []zap.Field{
		zap.String("channel", s.channel),
		zap.String("notification_id", n.ID.Hex()),
		zap.String("recipient", n.Recipient),
		zap.String("message", n.Message),
	}
	if n.Subject != nil {
		fields = append(fields, zap.String("subject", *n.Subject))
	}
	s.logger.Info("📧 Sending notification", fields...)
	return s.confirms, nil
}

// DefaultSenders wires one logging sender per notification type. Only email
// reports a delivery confirmation.
func DefaultSenders(logger *zap.Logger) map[string]Sender {
	return map[string]Sender{
		TypeEmail: logSender{channel: TypeEmail, confirms: true, logger: logger},
		TypeSMS:   logSender{channel: TypeSMS, logger: logger},
		TypePush:  logSender{channel: TypePush, logger: logger},
		TypeInApp: logSender{channel: TypeInApp, logger: logger},
	}
}

// Dispatcher persists notifications and pushes them through their sender.
type Dispatcher struct {
	repository Repository
	senders    map[string]Sender
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time

	maxRetries     int
	retryBatchSize int64

	sent   metric.Int64Counter
	failed metric.Int64Counter
}

func NewDispatcher(
	repository Repository,
	senders map[string]Sender,
	maxRetries int,
	retryBatchSize int64,
	tracer trace.Tracer,
	logger *zap.Logger,
) *Dispatcher {
	meter := otel.Meter("notification-service")
	sent, _ := meter.Int64Counter("notifications.sent",
		metric.WithDescription("Notifications accepted by their sender, by type"))
	failed, _ := meter.Int64Counter("notifications.failed",
		metric.WithDescription("Notification delivery attempts that failed, by type"))

	return &Dispatcher{
		repository:     repository,
		senders:        senders,
		tracer:         tracer,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		maxRetries:     maxRetries,
		retryBatchSize: retryBatchSize,
		sent:           sent,
		failed:         failed,
	}
}

// Create stores the notification as pending and attempts delivery right away.
// A failed delivery is recorded on the notification, not returned.
func (d *Dispatcher) Create(ctx context.Context, draft Draft) (*Notification, error) {
	if !isValidType(draft.Type) {
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid notification type: %s", draft.Type))
	}

	n := NewNotification(draft, d.maxRetries, d.now())
	if err := d.repository.Create(ctx, n); err != nil {
		return nil, err
	}

	if err := d.deliver(ctx, n); err != nil {
		d.logger.Error("❌ Failed to send notification",
			zap.String("notification_id", n.ID.Hex()),
			zap.Error(err),
		)
	}
	return n, nil
}

// deliver sends n and persists the resulting status.
func (d *Dispatcher) deliver(ctx context.Context, n *Notification) (err error) {
	ctx, span := observability.StartStepSpan(ctx, d.tracer, "dispatch_notification", "send",
		attribute.String("notification_id", n.ID.Hex()),
		attribute.String("notification_type", n.Type),
	)
	defer func() { observability.EndSpan(span, err) }()

	typeAttr := metric.WithAttributes(attribute.String("type", n.Type))

	delivered, sendErr := d.send(ctx, n)
	if sendErr != nil {
		d.failed.Add(ctx, 1, typeAttr)
		n.markFailed(d.now())
		if err := d.repository.Update(ctx, n); err != nil {
			return fmt.Errorf("%w (and failed to record the failure: %v)", sendErr, err)
		}
		return sendErr
	}

	d.sent.Add(ctx, 1, typeAttr)
	n.markSent(d.now())
	if err := d.repository.Update(ctx, n); err != nil {
		return err
	}

	if delivered {
		n.markDelivered(d.now())
		if err := d.repository.Update(ctx, n); err != nil {
			return err
		}
	}

	d.logger.Info("✅ Notification sent",
		zap.String("notification_id", n.ID.Hex()),
		zap.String("type", n.Type),
		zap.String("status", n.Status),
	)
	return nil
}

func (d *Dispatcher) send(ctx context.Context, n *Notification) (bool, error) {
	sender, ok := d.senders[n.Type]
	if !ok {
		return false, fmt.Errorf("unsupported notification type: %s", n.Type)
	}
	return sender.Send(ctx, n)
}

// RetryFailed re-attempts one batch of failed notifications that still have
// retries left and returns how many went through.
func (d *Dispatcher) RetryFailed(ctx context.Context) (int, error) {
	candidates, err := d.repository.FindRetryable(ctx, d.retryBatchSize)
	if err != nil {
		return 0, err
	}

	retried := 0
	for i := range candidates {
		n := &candidates[i]
		if !n.Retryable() {
			continue
		}
		if err := d.deliver(ctx, n); err != nil {
			d.logger.Error("❌ Failed to retry notification",
				zap.String("notification_id", n.ID.Hex()),
				zap.Int("retry_count", n.RetryCount),
				zap.Error(err),
			)
			continue
		}
		retried++
	}

	d.logger.Info("🔁 Retry sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("retried", retried),
	)
	return retried, nil
}

func (d *Dispatcher) Get(ctx context.Context, id string) (*Notification, error) {
	n, err := d.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperr.NotFound("Notification not found")
	}
	return n, nil
}

func (d *Dispatcher) List(ctx context.Context, filter NotificationFilter) ([]Notification, error) {
	if filter.Status != "" && !isValidStatus(filter.Status) {
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid status: %s", filter.Status))
	}
	return d.repository.List(ctx, filter)
}

func (d *Dispatcher) Stats(ctx context.Context) (*NotificationStats, error) {
	return d.repository.Stats(ctx)
}
