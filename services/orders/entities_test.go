package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	// Arrange
	product := &Product{ID: "A", Name: "Keyboard", Price: 49.99, ImageURLs: []string{"https://cdn/img.png"}}
	items := []OrderItem{NewOrderItem(product, 3)}

	// Act
	order := NewOrder("user-1", "jane@example.com", items, ShippingAddress{ID: "addr-1"}, fixedNow)

	// Assert
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 149.97, order.Subtotal)
	assert.Equal(t, 12.0, order.TaxAmount)
	assert.Equal(t, 0.0, order.ShippingCost)
	assert.Equal(t, 161.97, order.TotalAmount)
	assert.True(t, fixedNow.Equal(order.CreatedAt))
	assert.NotNil(t, order.Metadata)
	assert.Equal(t, []string{"https://cdn/img.png"}, order.Items[0].ProductSnapshot.ImageURLs)
}

func TestApplyPricing_TotalNeverNegative(t *testing.T) {
	order := NewOrder("user-1", "jane@example.com",
		[]OrderItem{{UnitPrice: 5, Quantity: 1}}, ShippingAddress{}, fixedNow)

	order.DiscountAmount = 500
	order.ApplyPricing()

	assert.Equal(t, 0.0, order.TotalAmount)
}

func TestOrderPredicates(t *testing.T) {
	tests := []struct {
		status      string
		editable    bool
		cancellable bool
	}{
		{OrderStatusPending, true, true},
		{OrderStatusConfirmed, true, true},
		{OrderStatusProcessing, false, true},
		{OrderStatusShipped, false, false},
		{OrderStatusDelivered, false, false},
		{OrderStatusCancelled, false, false},
		{OrderStatusRefunded, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			order := &Order{Status: tt.status}
			assert.Equal(t, tt.editable, order.IsEditable())
			assert.Equal(t, tt.cancellable, order.IsCancellable())
		})
	}
}

func TestTransitionTo_StampsMilestonesOnce(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	first := fixedNow
	later := fixedNow.Add(2 * time.Hour)

	order.TransitionTo(OrderStatusShipped, first)
	order.TransitionTo(OrderStatusProcessing, later)
	order.TransitionTo(OrderStatusShipped, later)

	require.NotNil(t, order.ShippedAt)
	assert.True(t, first.Equal(*order.ShippedAt))
	assert.Nil(t, order.ConfirmedAt)
	assert.Nil(t, order.DeliveredAt)
	assert.True(t, later.Equal(order.UpdatedAt))
}

func TestAppendNote(t *testing.T) {
	order := &Order{}

	order.AppendNote("first", fixedNow)
	order.AppendNote("second", fixedNow.Add(time.Minute))

	lines := strings.Split(*order.Notes, "\n")
	assert.Equal(t, []string{
		"2024-05-01T12:30:00Z: first",
		"2024-05-01T12:31:00Z: second",
	}, lines)
}

func TestGenerateOrderNumber(t *testing.T) {
	number := GenerateOrderNumber(time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC))

	assert.Regexp(t, `^ORD-20231231235958-[0-9A-F]{8}$`, number)
	assert.NotEqual(t, number, GenerateOrderNumber(fixedNow))
}

func TestBuildOrderStats_Empty(t *testing.T) {
	stats := BuildOrderStats(nil)

	assert.Equal(t, OrderStats{}, stats)
}

func TestOrderResponse_ItemCount(t *testing.T) {
	order := &Order{Status: OrderStatusProcessing, Items: []OrderItem{{Quantity: 2}, {Quantity: 5}}}

	resp := NewOrderResponse(order)

	assert.Equal(t, 7, resp.ItemCount)
	assert.False(t, resp.IsEditable)
	assert.True(t, resp.IsCancellable)
}
