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

// Transaction runs fn against the mock itself and records the call.
func (m *MockRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	m.Called(ctx)
	return fn(m)
}

func (m *MockRepository) CreateCategory(ctx context.Context, category *Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockRepository) GetCategory(ctx context.Context, id string) (*Category, error) {
	args := m.Called(ctx, id)
	category, _ := args.Get(0).(*Category)
	return category, args.Error(1)
}

func (m *MockRepository) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	args := m.Called(ctx, name)
	category, _ := args.Get(0).(*Category)
	return category, args.Error(1)
}

func (m *MockRepository) ListCategories(ctx context.Context, offset, limit int, activeOnly bool) ([]Category, error) {
	args := m.Called(ctx, offset, limit, activeOnly)
	categories, _ := args.Get(0).([]Category)
	return categories, args.Error(1)
}

func (m *MockRepository) SaveCategory(ctx context.Context, category *Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockRepository) CreateProduct(ctx context.Context, product *Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*Product)
	return product, args.Error(1)
}

func (m *MockRepository) GetProductForUpdate(ctx context.Context, id string) (*Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*Product)
	return product, args.Error(1)
}

func (m *MockRepository) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	args := m.Called(ctx, sku)
	product, _ := args.Get(0).(*Product)
	return product, args.Error(1)
}

func (m *MockRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error) {
	args := m.Called(ctx, filter)
	products, _ := args.Get(0).([]Product)
	return products, args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) SaveProduct(ctx context.Context, product *Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockRepository) CreateMovement(ctx context.Context, movement *StockMovement) error {
	return m.Called(ctx, movement).Error(0)
}

type emitted struct {
	eventType string
	key       string
	payload   any
}

type recordingEmitter struct {
	emitted []emitted
}

func (r *recordingEmitter) Emit(_ context.Context, topic, eventType, key string, payload any) events.Result {
	r.emitted = append(r.emitted, emitted{eventType: eventType, key: key, payload: payload})
	return events.Result{Topic: topic, EventType: eventType, Key: key, Status: events.StatusSkipped}
}

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.emitted))
	for _, e := range r.emitted {
		out = append(out, e.eventType)
	}
	return out
}
