package main

import (
	"time"
)

const (
	EventOrderCreated          = "order.created"
	EventOrderConfirmed        = "order.confirmed"
	EventOrderCancelled        = "order.cancelled"
	EventOrderShipped          = "order.shipped"
	EventOrderDelivered        = "order.delivered"
	EventOrderRefunded         = "order.refunded"
	EventOrderPaymentCompleted = "order.payment_completed"
	EventOrderPaymentFailed    = "order.payment_failed"
)

const paymentFailureReason = "Payment processing failed"

type orderEventHeader struct {
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	TotalAmount float64   `json:"total_amount"`
}

func newHeader(eventType string, o *Order, now time.Time) orderEventHeader {
	return orderEventHeader{
		EventType:   eventType,
		Timestamp:   now,
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		UserEmail:   o.UserEmail,
		TotalAmount: o.TotalAmount,
	}
}

type OrderCreatedItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type OrderCreatedEvent struct {
	orderEventHeader
	ItemCount int                `json:"item_count"`
	Items     []OrderCreatedItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewOrderCreatedEvent(o *Order, now time.Time) OrderCreatedEvent {
	items := make([]OrderCreatedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderCreatedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	return OrderCreatedEvent{
		orderEventHeader: newHeader(EventOrderCreated, o, now),
		ItemCount:        o.ItemCount(),
		Items:            items,
		CreatedAt:        o.CreatedAt,
	}
}

// OrderStatusEvent is published on status transitions. Only the fields
// relevant to the transition are set.
type OrderStatusEvent struct {
	orderEventHeader
	UpdatedAt          time.Time        `json:"updated_at"`
	ConfirmedAt        *time.Time       `json:"confirmed_at,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	ShippedAt          *time.Time       `json:"shipped_at,omitempty"`
	TrackingNumber     *string          `json:"tracking_number,omitempty"`
	ShippingMethod     *string          `json:"shipping_method,omitempty"`
	ShippingAddress    *ShippingAddress `json:"shipping_address,omitempty"`
	DeliveredAt        *time.Time       `json:"delivered_at,omitempty"`
}

// statusEventType maps an order status to the event it publishes, if any.
func statusEventType(status string) (string, bool) {
	switch status {
	case OrderStatusConfirmed:
		return EventOrderConfirmed, true
	case OrderStatusCancelled:
		return EventOrderCancelled, true
	case OrderStatusShipped:
		return EventOrderShipped, true
	case OrderStatusDelivered:
		return EventOrderDelivered, true
	case OrderStatusRefunded:
		return EventOrderRefunded, true
	}
	return "", false
}

func NewOrderStatusEvent(eventType string, o *Order, reason *string, now time.Time) OrderStatusEvent {
	event := OrderStatusEvent{
		orderEventHeader: newHeader(eventType, o, now),
		UpdatedAt:        o.UpdatedAt,
	}

	switch eventType {
	case EventOrderConfirmed:
		event.ConfirmedAt = o.ConfirmedAt
	case EventOrderCancelled:
		event.CancellationReason = reason
	case EventOrderShipped:
		address := o.ShippingAddress
		event.ShippedAt = o.ShippedAt
		event.TrackingNumber = o.TrackingNumber
		event.ShippingMethod = o.ShippingMethod
		event.ShippingAddress = &address
	case EventOrderDelivered:
		event.DeliveredAt = o.DeliveredAt
	}

	return event
}

type PaymentEvent struct {
	orderEventHeader
	PaymentMethod        *string   `json:"payment_method"`
	PaymentTransactionID *string   `json:"payment_transaction_id"`
	UpdatedAt            time.Time `json:"updated_at"`
	FailureReason        string    `json:"failure_reason,omitempty"`
}

// paymentEventType maps a payment status to the event it publishes, if any.
func paymentEventType(status string) (string, bool) {
	switch status {
	case PaymentStatusPaid:
		return EventOrderPaymentCompleted, true
	case PaymentStatusFailed:
		return EventOrderPaymentFailed, true
	case PaymentStatusRefunded:
		return EventOrderRefunded, true
	}
	return "", false
}

func NewPaymentEvent(eventType string, o *Order, now time.Time) PaymentEvent {
	event := PaymentEvent{
		orderEventHeader:     newHeader(eventType, o, now),
		PaymentMethod:        o.PaymentMethod,
		PaymentTransactionID: o.PaymentTransactionID,
		UpdatedAt:            o.UpdatedAt,
	}
	if eventType == EventOrderPaymentFailed {
		event.FailureReason = paymentFailureReason
	}
	return event
}
