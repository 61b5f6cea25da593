package main

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRepository para testes que não precisam de banco real
type MockRepository struct {
	mock.Mock
	// statuses records the status of every Update, in order.
	statuses []string
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRepository) Create(ctx context.Context, n *Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*Notification)
	return n, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter NotificationFilter) ([]Notification, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]Notification)
	return list, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, n *Notification) error {
	m.statuses = append(m.statuses, n.Status)
	return m.Called(ctx, n).Error(0)
}

func (m *MockRepository) Stats(ctx context.Context) (*NotificationStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*NotificationStats)
	return stats, args.Error(1)
}

func (m *MockRepository) FindRetryable(ctx context.Context, limit int64) ([]Notification, error) {
	args := m.Called(ctx, limit)
	list, _ := args.Get(0).([]Notification)
	return list, args.Error(1)
}

// stubSender fails while failures > 0, then succeeds.
type stubSender struct {
	failures  int
	delivered bool
	calls     int
}

func (s *stubSender) Send(context.Context, *Notification) (bool, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return false, errSMTPDown
	}
	return s.delivered, nil
}

type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) Create(ctx context.Context, draft Draft) (*Notification, error) {
	args := m.Called(ctx, draft)
	n, _ := args.Get(0).(*Notification)
	return n, args.Error(1)
}
