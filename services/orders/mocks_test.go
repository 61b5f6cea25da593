package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/matheusmosca/ecommerce-microservices/internal/events"
)

// MockRepository para testes que não precisam de banco real
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRepository) CreateAddress(ctx context.Context, address *ShippingAddress) error {
	return m.Called(ctx, address).Error(0)
}

func (m *MockRepository) CreateOrder(ctx context.Context, order *Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *MockRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	args := m.Called(ctx, filter)
	orders, _ := args.Get(0).([]*Order)
	return orders, args.Error(1)
}

func (m *MockRepository) CountOrders(ctx context.Context, filter OrderFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) SaveOrder(ctx context.Context, order *Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockRepository) StatusAggregates(ctx context.Context) ([]StatusAggregate, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]StatusAggregate)
	return rows, args.Error(1)
}

type MockIdentityVerifier struct {
	mock.Mock
}

func (m *MockIdentityVerifier) Verify(ctx context.Context, token string) (*UserIdentity, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*UserIdentity)
	return user, args.Error(1)
}

type MockInventoryReserver struct {
	mock.Mock
}

func (m *MockInventoryReserver) Reserve(ctx context.Context, lines []LineRequest) ReservationResult {
	return m.Called(ctx, lines).Get(0).(ReservationResult)
}

// emittedEvent is one call recorded by MockEmitter.
type emittedEvent struct {
	Topic     string
	EventType string
	Key       string
	Payload   any
}

// MockEmitter records every emitted event and reports it as published, or as
// failed with Failure when that is set.
type MockEmitter struct {
	Emitted []emittedEvent
	Failure error
}

func (m *MockEmitter) Emit(ctx context.Context, topic, eventType, key string, payload any) events.Result {
	m.Emitted = append(m.Emitted, emittedEvent{Topic: topic, EventType: eventType, Key: key, Payload: payload})
	result := events.Result{Topic: topic, EventType: eventType, Key: key, Status: events.StatusPublished}
	if m.Failure != nil {
		result.Status = events.StatusFailed
		result.Err = m.Failure
	}
	return result
}

func (m *MockEmitter) types() []string {
	var types []string
	for _, e := range m.Emitted {
		types = append(types, e.EventType)
	}
	return types
}
