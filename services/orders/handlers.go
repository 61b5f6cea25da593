package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

// OrderUseCaseInterface define a interface para o use case
type OrderUseCaseInterface interface {
	CreateOrder(ctx context.Context, token string, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID, token string) (*Order, error)
	ListUserOrders(ctx context.Context, token, status string, page, perPage int) (*OrderList, error)
	ListOrders(ctx context.Context, query ListOrdersQuery) (*OrderList, error)
	Stats(ctx context.Context) (*OrderStats, error)
	UpdateStatus(ctx context.Context, orderID string, req StatusUpdateRequest) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, req PaymentUpdateRequest) (*Order, error)
	CancelOrder(ctx context.Context, orderID, token string) (*Order, error)
	DeleteOrder(ctx context.Context, orderID string) (*Order, bool, error)
}

type userOrdersQuery struct {
	Status  string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=20" binding:"min=1,max=100"`
}

type adminOrdersQuery struct {
	Status        string `form:"status" binding:"omitempty,oneof=pending confirmed processing shipped delivered cancelled refunded"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
	UserID        string `form:"user_id"`
	Page          int    `form:"page,default=1" binding:"min=1"`
	PerPage       int    `form:"per_page,default=50" binding:"min=1,max=100"`
}

// OrderHandler contém os handlers HTTP
type OrderHandler struct {
	useCase OrderUseCaseInterface
	tracer  trace.Tracer
}

func NewOrderHandler(useCase OrderUseCaseInterface, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

func (h *OrderHandler) Register(r gin.IRouter) {
	orders := r.Group("/api/v1/orders")

	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListUserOrders)
	orders.GET("/status/options", h.StatusOptions)
	orders.GET("/admin/stats", h.Stats)
	orders.GET("/admin/all", h.ListAllOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PATCH("/:id/cancel", h.CancelOrder)
	orders.PATCH("/:id/status", h.UpdateStatus)
	orders.PATCH("/:id/payment", h.UpdatePayment)
	orders.DELETE("/:id", h.DeleteOrder)
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.create_order")
	defer span.End()

	token, err := server.BearerToken(c)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		server.BindError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("order.lines", len(req.Items)))

	order, err := h.useCase.CreateOrder(ctx, token, req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	c.JSON(http.StatusCreated, NewOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_order")
	defer span.End()

	token, err := server.BearerToken(c)
	if err != nil {
		server.Fail(c, err)
		return
	}

	order, err := h.useCase.GetOrder(ctx, c.Param("id"), token)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewOrderResponse(order))
}

func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.list_user_orders")
	defer span.End()

	token, err := server.BearerToken(c)
	if err != nil {
		server.Fail(c, err)
		return
	}

	var query userOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		server.BindError(c, err)
		return
	}

	list, err := h.useCase.ListUserOrders(ctx, token, query.Status, query.Page, query.PerPage)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.list_all_orders")
	defer span.End()

	var query adminOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		server.BindError(c, err)
		return
	}

	list, err := h.useCase.ListOrders(ctx, ListOrdersQuery{
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		UserID:        query.UserID,
		Page:          query.Page,
		PerPage:       query.PerPage,
	})
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *OrderHandler) Stats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.order_stats")
	defer span.End()

	stats, err := h.useCase.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *OrderHandler) StatusOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"order_statuses":   OrderStatuses,
		"payment_statuses": PaymentStatuses,
	})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_order_status")
	defer span.End()

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	order, err := h.useCase.UpdateStatus(ctx, c.Param("id"), req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewOrderResponse(order))
}

func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_order_payment")
	defer span.End()

	var req PaymentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	order, err := h.useCase.UpdatePaymentStatus(ctx, c.Param("id"), req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.cancel_order")
	defer span.End()

	token, err := server.BearerToken(c)
	if err != nil {
		server.Fail(c, err)
		return
	}

	order, err := h.useCase.CancelOrder(ctx, c.Param("id"), token)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewOrderResponse(order))
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.delete_order")
	defer span.End()

	order, cancelled, err := h.useCase.DeleteOrder(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	message := "Order deleted successfully"
	if !cancelled {
		message = fmt.Sprintf("Order cannot be deleted in %s status, left unchanged", order.Status)
	}
	span.SetAttributes(attribute.Bool("order.cancelled", cancelled))

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: message,
		Data:    NewOrderResponse(order),
	})
}
