package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/observability"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

const createOrderWorkflow = "create_order"

// ShippingAddressRequest is the address submitted with a new order.
type ShippingAddressRequest struct {
	FullName     string  `json:"full_name" binding:"required,min=2,max=100"`
	AddressLine1 string  `json:"address_line_1" binding:"required,min=5,max=200"`
	AddressLine2 *string `json:"address_line_2" binding:"omitempty,max=200"`
	City         string  `json:"city" binding:"required,min=2,max=100"`
	State        string  `json:"state" binding:"required,min=2,max=100"`
	PostalCode   string  `json:"postal_code" binding:"required,min=3,max=20"`
	Country      string  `json:"country" binding:"required,min=2,max=100"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
}

// CreateOrderRequest representa a requisição para criar um pedido
type CreateOrderRequest struct {
	Items           []LineRequest          `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
	ShippingMethod  *string                `json:"shipping_method"`
	PaymentMethod   *string                `json:"payment_method"`
	Notes           *string                `json:"notes" binding:"omitempty,max=1000"`
}

// ListOrdersQuery is the admin listing filter.
type ListOrdersQuery struct {
	Status        string
	PaymentStatus string
	UserID        string
	Page          int
	PerPage       int
}

// OrderUseCase contém a lógica de negócio dos pedidos
type OrderUseCase struct {
	repository Repository
	identity   IdentityVerifier
	inventory  InventoryReserver
	emitter    events.Emitter
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time

	ordersCreated       metric.Int64Counter
	reservationFailures metric.Int64Counter
}

func NewOrderUseCase(
	repository Repository,
	identity IdentityVerifier,
	inventory InventoryReserver,
	emitter events.Emitter,
	tracer trace.Tracer,
	logger *zap.Logger,
) *OrderUseCase {
	meter := otel.Meter("orders-service")
	ordersCreated, _ := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders persisted by the order assembler"))
	reservationFailures, _ := meter.Int64Counter("orders.reservation_failures",
		metric.WithDescription("Order lines rejected by the inventory reservation, by reason"))

	return &OrderUseCase{
		repository:          repository,
		identity:            identity,
		inventory:           inventory,
		emitter:             emitter,
		tracer:              tracer,
		logger:              logger,
		now:                 func() time.Time { return time.Now().UTC() },
		ordersCreated:       ordersCreated,
		reservationFailures: reservationFailures,
	}
}

// authenticate resolves the credential or fails with Unauthorized.
func (uc *OrderUseCase) authenticate(ctx context.Context, token string) (*UserIdentity, error) {
	user, err := uc.identity.Verify(ctx, token)
	if err != nil {
		uc.logger.Error("Identity verification failed", zap.Error(err))
	}
	if err != nil || user == nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	return user, nil
}

// CreateOrder verifies the caller, reserves every line, prices and persists
// the order, then announces it. A caller disconnect does not interrupt it.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (order *Order, err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := uc.tracer.Start(ctx, createOrderWorkflow)
	defer func() { observability.EndSpan(span, err) }()

	// 1. identity
	stepCtx, step := observability.StartStepSpan(ctx, uc.tracer, createOrderWorkflow, "verify_identity")
	user, err := uc.authenticate(stepCtx, token)
	observability.EndSpan(step, err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	// 2. reservation
	stepCtx, step = observability.StartStepSpan(ctx, uc.tracer, createOrderWorkflow, "reserve_inventory",
		attribute.Int("order.lines", len(req.Items)))
	reservation := uc.inventory.Reserve(stepCtx, req.Items)
	if !reservation.Success() {
		err = uc.reservationError(stepCtx, reservation)
	}
	observability.EndSpan(step, err)
	if err != nil {
		return nil, err
	}

	// 3. snapshot lines
	items := make([]OrderItem, 0, len(reservation.Lines))
	for _, line := range reservation.Lines {
		items = append(items, NewOrderItem(line.Product, line.Quantity))
	}

	now := uc.now()

	// 4. address
	address := ShippingAddress{
		ID:           uuid.New().String(),
		FullName:     req.ShippingAddress.FullName,
		AddressLine1: req.ShippingAddress.AddressLine1,
		AddressLine2: req.ShippingAddress.AddressLine2,
		City:         req.ShippingAddress.City,
		State:        req.ShippingAddress.State,
		PostalCode:   req.ShippingAddress.PostalCode,
		Country:      req.ShippingAddress.Country,
		Phone:        req.ShippingAddress.Phone,
		CreatedAt:    now,
	}

	stepCtx, step = observability.StartStepSpan(ctx, uc.tracer, createOrderWorkflow, "persist_address")
	err = uc.repository.CreateAddress(stepCtx, &address)
	observability.EndSpan(step, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// 5. order
	order = NewOrder(user.ID, user.Email, items, address, now)
	order.ShippingMethod = req.ShippingMethod
	order.PaymentMethod = req.PaymentMethod
	order.Notes = req.Notes

	stepCtx, step = observability.StartStepSpan(ctx, uc.tracer, createOrderWorkflow, "persist_order",
		attribute.String("order_id", order.ID))
	err = uc.repository.CreateOrder(stepCtx, order)
	observability.EndSpan(step, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	uc.ordersCreated.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("order_id", order.ID),
		attribute.String("order_number", order.OrderNumber),
	)
	uc.logger.Info("✅ Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total_amount", order.TotalAmount),
	)

	// 6. event
	stepCtx, step = observability.StartStepSpan(ctx, uc.tracer, createOrderWorkflow, "emit_event")
	result := uc.emitter.Emit(stepCtx, events.TopicOrderEvents, EventOrderCreated, order.ID, NewOrderCreatedEvent(order, now))
	result.Log(uc.logger)
	observability.EndSpan(step, nil)

	return order, nil
}

func (uc *OrderUseCase) reservationError(ctx context.Context, reservation ReservationResult) error {
	failed := reservation.Failed()
	details := make([]string, 0, len(failed))
	for _, line := range failed {
		details = append(details, fmt.Sprintf("Product %s: %s", line.ProductID, line.Reason))
		uc.reservationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", line.Reason)))
	}

	uc.logger.Warn("Product reservation failed", zap.Strings("details", details))
	return apperr.BadRequest("Product reservation failed: " + strings.Join(details, "; "))
}

// GetOrder returns the order if the caller owns it.
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID, token string) (*Order, error) {
	user, err := uc.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return uc.ownedOrder(ctx, orderID, user)
}

func (uc *OrderUseCase) ownedOrder(ctx context.Context, orderID string, user *UserIdentity) (*Order, error) {
	order, err := uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperr.NotFound("Order not found")
	}
	if order.UserID != user.ID {
		return nil, apperr.Forbidden("Access denied")
	}
	return order, nil
}

// ListUserOrders pages through the caller's orders, newest first.
func (uc *OrderUseCase) ListUserOrders(ctx context.Context, token, status string, page, perPage int) (*OrderList, error) {
	user, err := uc.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	return uc.listOrders(ctx, OrderFilter{UserID: user.ID, Status: status}, page, perPage)
}

// ListOrders is the unrestricted admin listing.
func (uc *OrderUseCase) ListOrders(ctx context.Context, query ListOrdersQuery) (*OrderList, error) {
	filter := OrderFilter{
		UserID:        query.UserID,
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
	}
	return uc.listOrders(ctx, filter, query.Page, query.PerPage)
}

func (uc *OrderUseCase) listOrders(ctx context.Context, filter OrderFilter, page, perPage int) (*OrderList, error) {
	filter.Limit = perPage
	filter.Offset = server.Offset(page, perPage)

	orders, err := uc.repository.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	total, err := uc.repository.CountOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	list := &OrderList{
		Orders:     make([]OrderResponse, 0, len(orders)),
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: server.TotalPages(total, perPage),
	}
	for _, o := range orders {
		list.Orders = append(list.Orders, NewOrderResponse(o))
	}

	return list, nil
}

func (uc *OrderUseCase) Stats(ctx context.Context) (*OrderStats, error) {
	rows, err := uc.repository.StatusAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order stats: %w", err)
	}

	stats := BuildOrderStats(rows)
	return &stats, nil
}
