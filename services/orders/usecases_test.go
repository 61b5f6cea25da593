package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/config"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type fixture struct {
	repo      *MockRepository
	identity  *MockIdentityVerifier
	inventory *MockInventoryReserver
	emitter   *MockEmitter
	useCase   *OrderUseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(MockRepository),
		identity:  new(MockIdentityVerifier),
		inventory: new(MockInventoryReserver),
		emitter:   new(MockEmitter),
	}
	f.useCase = NewOrderUseCase(f.repo, f.identity, f.inventory, f.emitter, noop.NewTracerProvider().Tracer(""), zap.NewNop())
	f.useCase.now = func() time.Time { return fixedNow }
	return f
}

func strPtr(s string) *string { return &s }

func validRequest(lines ...LineRequest) CreateOrderRequest {
	return CreateOrderRequest{
		Items: lines,
		ShippingAddress: ShippingAddressRequest{
			FullName:     "Jane Doe",
			AddressLine1: "221B Baker Street",
			City:         "London",
			State:        "Greater London",
			PostalCode:   "NW16XE",
			Country:      "UK",
		},
		Notes: strPtr("Leave at the door"),
	}
}

func reservedLine(id string, qty int, price float64) LineReservation {
	return LineReservation{
		ProductID: id,
		Quantity:  qty,
		Reserved:  true,
		Product: &Product{
			ID:           id,
			Name:         "Product " + id,
			Description:  "A product used in tests",
			Price:        price,
			SKU:          strPtr("SKU-" + id),
			CategoryName: strPtr("Books"),
			IsAvailable:  true,
			IsActive:     true,
		},
	}
}

var jane = &UserIdentity{ID: "user-1", Name: "Jane", Email: "jane@example.com", IsActive: true}

func TestCreateOrder_Success(t *testing.T) {
	// Arrange
	f := newFixture()
	req := validRequest(LineRequest{ProductID: "A", Quantity: 2})

	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
	f.inventory.On("Reserve", mock.Anything, req.Items).
		Return(ReservationResult{Lines: []LineReservation{reservedLine("A", 2, 30)}})

	var savedAddress *ShippingAddress
	f.repo.On("CreateAddress", mock.Anything, mock.AnythingOfType("*main.ShippingAddress")).
		Run(func(args mock.Arguments) { savedAddress = args.Get(1).(*ShippingAddress) }).
		Return(nil)
	f.repo.On("CreateOrder", mock.Anything, mock.AnythingOfType("*main.Order")).Return(nil)

	// Act
	order, err := f.useCase.CreateOrder(context.Background(), "token", req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, "jane@example.com", order.UserEmail)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 60.0, order.Subtotal)
	assert.Equal(t, 4.80, order.TaxAmount)
	assert.Equal(t, 10.0, order.ShippingCost)
	assert.Equal(t, 74.80, order.TotalAmount)
	assert.Equal(t, "Leave at the door", *order.Notes)
	assert.Empty(t, order.Metadata)
	assert.Regexp(t, `^ORD-20240501123000-[0-9A-F]{8}$`, order.OrderNumber)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, "Product A", item.ProductName)
	assert.Equal(t, "SKU-A", *item.ProductSKU)
	assert.Equal(t, 60.0, item.TotalPrice)
	assert.Equal(t, "Books", *item.ProductSnapshot.CategoryName)

	require.NotNil(t, savedAddress)
	assert.Equal(t, savedAddress.ID, order.ShippingAddress.ID)
	assert.Equal(t, "Jane Doe", order.ShippingAddress.FullName)

	require.Len(t, f.emitter.Emitted, 1)
	emitted := f.emitter.Emitted[0]
	assert.Equal(t, events.TopicOrderEvents, emitted.Topic)
	assert.Equal(t, EventOrderCreated, emitted.EventType)
	assert.Equal(t, order.ID, emitted.Key)
	created := emitted.Payload.(OrderCreatedEvent)
	assert.Equal(t, EventOrderCreated, created.EventType)
	assert.Equal(t, 2, created.ItemCount)

	f.repo.AssertExpectations(t)
}

func TestCreateOrder_CallerDisconnectMidReservation(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalog := &fakeCatalog{
		products: map[string]Product{
			"A": {ID: "A", Name: "Mouse", Price: 25, StockQuantity: 10, IsAvailable: true, IsActive: true},
			"B": {ID: "B", Name: "Mouse Pad", Price: 10, StockQuantity: 10, IsAvailable: true, IsActive: true},
		},
		patches: map[string]int{},
		onPatch: func(string) { cancel() },
	}
	srv := httptest.NewServer(catalog)
	defer srv.Close()

	f := newFixture()
	f.useCase.inventory = NewProductServiceClient(config.PeerConfig{URL: srv.URL, Timeout: time.Second}, zap.NewNop())
	req := validRequest(LineRequest{ProductID: "A", Quantity: 1}, LineRequest{ProductID: "B", Quantity: 2})

	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
	f.repo.On("CreateAddress", live, mock.AnythingOfType("*main.ShippingAddress")).Return(nil)
	f.repo.On("CreateOrder", live, mock.AnythingOfType("*main.Order")).Return(nil)

	// Act
	order, err := f.useCase.CreateOrder(ctx, "token", req)

	// Assert
	require.Error(t, ctx.Err())
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, map[string]int{"A": -1, "B": -2}, catalog.patches)
	assert.Equal(t, []string{EventOrderCreated}, f.emitter.types())
	f.repo.AssertExpectations(t)
}

func TestCreateOrder_EmitFailureDoesNotFailOrder(t *testing.T) {
	// Arrange
	f := newFixture()
	f.emitter.Failure = errors.New("kafka: leader not available")
	req := validRequest(LineRequest{ProductID: "A", Quantity: 1})
	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
	f.inventory.On("Reserve", mock.Anything, req.Items).
		Return(ReservationResult{Lines: []LineReservation{reservedLine("A", 1, 30)}})
	f.repo.On("CreateAddress", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("CreateOrder", mock.Anything, mock.Anything).Return(nil)

	// Act
	order, err := f.useCase.CreateOrder(context.Background(), "token", req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Equal(t, []string{EventOrderCreated}, f.emitter.types())
	f.repo.AssertExpectations(t)
}

func TestCreateOrder_InvalidToken(t *testing.T) {
	tests := []struct {
		name string
		user *UserIdentity
		err  error
	}{
		{"rejected credential", nil, nil},
		{"user service unreachable", nil, errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.identity.On("Verify", mock.Anything, "bad").Return(tt.user, tt.err)

			order, err := f.useCase.CreateOrder(context.Background(), "bad", validRequest(LineRequest{ProductID: "A", Quantity: 1}))

			assert.Nil(t, order)
			assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
			assert.Equal(t, "Invalid or expired token", apperr.PublicMessage(err))
			f.inventory.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_ReservationFailureListsEveryFailedLine(t *testing.T) {
	// Arrange
	f := newFixture()
	req := validRequest(
		LineRequest{ProductID: "A", Quantity: 1},
		LineRequest{ProductID: "B", Quantity: 5},
		LineRequest{ProductID: "C", Quantity: 1},
	)

	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
	f.inventory.On("Reserve", mock.Anything, req.Items).Return(ReservationResult{Lines: []LineReservation{
		reservedLine("A", 1, 10),
		{ProductID: "B", Quantity: 5, Reason: ReasonInsufficientStock},
		{ProductID: "C", Quantity: 1, Reason: ReasonProductNotFound},
	}})

	// Act
	order, err := f.useCase.CreateOrder(context.Background(), "token", req)

	// Assert
	assert.Nil(t, order)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
	assert.Equal(t,
		"Product reservation failed: Product B: Insufficient stock; Product C: Product not found",
		apperr.PublicMessage(err))
	f.repo.AssertNotCalled(t, "CreateAddress", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	assert.Empty(t, f.emitter.Emitted)
}

func TestCreateOrder_PersistenceFailureIsInternal(t *testing.T) {
	f := newFixture()
	req := validRequest(LineRequest{ProductID: "A", Quantity: 1})

	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
	f.inventory.On("Reserve", mock.Anything, req.Items).
		Return(ReservationResult{Lines: []LineReservation{reservedLine("A", 1, 150)}})
	f.repo.On("CreateAddress", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("CreateOrder", mock.Anything, mock.Anything).Return(errors.New("unique violation"))

	order, err := f.useCase.CreateOrder(context.Background(), "token", req)

	assert.Nil(t, order)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Empty(t, f.emitter.Emitted)
}

func TestGetOrder_Ownership(t *testing.T) {
	tests := []struct {
		name  string
		order *Order
		kind  apperr.Kind
	}{
		{"not found", nil, apperr.KindNotFound},
		{"someone else's order", &Order{ID: "o-1", UserID: "user-2"}, apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)
			f.repo.On("GetOrder", mock.Anything, "o-1").Return(tt.order, nil)

			_, err := f.useCase.GetOrder(context.Background(), "o-1", "token")

			assert.True(t, apperr.Is(err, tt.kind))
		})
	}
}

func TestListUserOrders_PaginatesCallerOrders(t *testing.T) {
	// Arrange
	f := newFixture()
	f.identity.On("Verify", mock.Anything, "token").Return(jane, nil)

	filter := OrderFilter{UserID: "user-1", Status: OrderStatusPending, Limit: 20, Offset: 20}
	orders := []*Order{
		{ID: "o-2", UserID: "user-1", Status: OrderStatusPending, Items: []OrderItem{{Quantity: 3}}},
	}
	f.repo.On("ListOrders", mock.Anything, filter).Return(orders, nil)
	f.repo.On("CountOrders", mock.Anything, filter).Return(int64(21), nil)

	// Act
	list, err := f.useCase.ListUserOrders(context.Background(), "token", OrderStatusPending, 2, 20)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(21), list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 20, list.PerPage)
	assert.Equal(t, 2, list.TotalPages)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, 3, list.Orders[0].ItemCount)
	assert.True(t, list.Orders[0].IsEditable)
	f.repo.AssertExpectations(t)
}

func TestStats(t *testing.T) {
	f := newFixture()
	f.repo.On("StatusAggregates", mock.Anything).Return([]StatusAggregate{
		{Status: OrderStatusPending, Count: 2, TotalAmount: 100},
		{Status: OrderStatusDelivered, Count: 1, TotalAmount: 74.80},
		{Status: OrderStatusCancelled, Count: 1, TotalAmount: 20},
	}, nil)

	stats, err := f.useCase.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.DeliveredOrders)
	assert.Equal(t, int64(1), stats.CancelledOrders)
	assert.Equal(t, 74.80, stats.TotalRevenue)
	assert.Equal(t, 48.70, stats.AverageOrderValue)
}
