package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/observability"
)

const (
	cancelledByCustomer = "Cancelled by customer"
	cancelledOnDelete   = "Order deleted"
)

// StatusUpdateRequest is the admin status change.
type StatusUpdateRequest struct {
	Status         string  `json:"status" binding:"required,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Notes          *string `json:"notes" binding:"omitempty,max=1000"`
	TrackingNumber *string `json:"tracking_number" binding:"omitempty,max=100"`
}

// PaymentUpdateRequest is the payment status change.
type PaymentUpdateRequest struct {
	PaymentStatus        string  `json:"payment_status" binding:"required,oneof=pending paid failed refunded"`
	PaymentTransactionID *string `json:"payment_transaction_id" binding:"omitempty,max=100"`
	PaymentMethod        *string `json:"payment_method" binding:"omitempty,max=50"`
}

// UpdateStatus sets the status unconditionally. Milestone timestamps are only
// stamped on first entry. Like every lifecycle change it is not interrupted by
// a caller disconnect.
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, orderID string, req StatusUpdateRequest) (order *Order, err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.StartStepSpan(ctx, uc.tracer, "order_lifecycle", "update_status",
		attribute.String("order_id", orderID),
		attribute.String("order.status", req.Status),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !isValidOrderStatus(req.Status) {
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid order status: %s", req.Status))
	}

	order, err = uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperr.NotFound("Order not found")
	}

	now := uc.now()
	order.TransitionTo(req.Status, now)
	if req.Notes != nil && *req.Notes != "" {
		order.AppendNote(*req.Notes, now)
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = req.TrackingNumber
	}

	if err = uc.repository.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	uc.logger.Info("Order status updated",
		zap.String("order_id", order.ID),
		zap.String("status", order.Status),
	)

	if eventType, ok := statusEventType(req.Status); ok {
		event := NewOrderStatusEvent(eventType, order, req.Notes, now)
		uc.emitter.Emit(ctx, events.TopicOrderEvents, eventType, order.ID, event).Log(uc.logger)
	}

	return order, nil
}

// UpdatePaymentStatus records the payment outcome. It does not touch the order
// status.
func (uc *OrderUseCase) UpdatePaymentStatus(ctx context.Context, orderID string, req PaymentUpdateRequest) (order *Order, err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.StartStepSpan(ctx, uc.tracer, "order_lifecycle", "update_payment",
		attribute.String("order_id", orderID),
		attribute.String("order.payment_status", req.PaymentStatus),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !isValidPaymentStatus(req.PaymentStatus) {
		return nil, apperr.BadRequest(fmt.Sprintf("Invalid payment status: %s", req.PaymentStatus))
	}

	order, err = uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperr.NotFound("Order not found")
	}

	now := uc.now()
	order.PaymentStatus = req.PaymentStatus
	order.UpdatedAt = now
	if req.PaymentTransactionID != nil {
		order.PaymentTransactionID = req.PaymentTransactionID
	}
	if req.PaymentMethod != nil {
		order.PaymentMethod = req.PaymentMethod
	}

	if err = uc.repository.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	uc.logger.Info("Order payment status updated",
		zap.String("order_id", order.ID),
		zap.String("payment_status", order.PaymentStatus),
	)

	if eventType, ok := paymentEventType(req.PaymentStatus); ok {
		event := NewPaymentEvent(eventType, order, now)
		uc.emitter.Emit(ctx, events.TopicOrderEvents, eventType, order.ID, event).Log(uc.logger)
	}

	return order, nil
}

// CancelOrder lets the owner cancel while the order is still cancellable.
func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID, token string) (*Order, error) {
	ctx = context.WithoutCancel(ctx)
	user, err := uc.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	order, err := uc.ownedOrder(ctx, orderID, user)
	if err != nil {
		return nil, err
	}

	if !order.IsCancellable() {
		return nil, apperr.BadRequest(fmt.Sprintf("Order cannot be cancelled in %s status", order.Status))
	}

	reason := cancelledByCustomer
	return uc.UpdateStatus(ctx, orderID, StatusUpdateRequest{
		Status: OrderStatusCancelled,
		Notes:  &reason,
	})
}

// DeleteOrder is the admin delete. Orders are never removed: a cancellable
// order is cancelled, any other is returned unchanged with cancelled false.
func (uc *OrderUseCase) DeleteOrder(ctx context.Context, orderID string) (order *Order, cancelled bool, err error) {
	ctx = context.WithoutCancel(ctx)

	order, err = uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, false, apperr.NotFound("Order not found")
	}
	if !order.IsCancellable() {
		uc.logger.Info("Order not cancellable, delete is a no-op",
			zap.String("order_id", order.ID),
			zap.String("status", order.Status),
		)
		return order, false, nil
	}

	reason := cancelledOnDelete
	order, err = uc.UpdateStatus(ctx, orderID, StatusUpdateRequest{
		Status: OrderStatusCancelled,
		Notes:  &reason,
	})
	if err != nil {
		return nil, false, err
	}
	return order, true, nil
}
