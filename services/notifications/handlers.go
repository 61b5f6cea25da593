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

type DispatcherInterface interface {
	Get(ctx context.Context, id string) (*Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]Notification, error)
	Stats(ctx context.Context) (*NotificationStats, error)
	RetryFailed(ctx context.Context) (int, error)
}

type listQuery struct {
	Recipient string `form:"recipient"`
	Status    string `form:"status"`
	Limit     int64  `form:"limit,default=50" binding:"gte=1,lte=1000"`
	Offset    int64  `form:"offset,default=0" binding:"gte=0"`
}

type listResponse struct {
	Success bool           `json:"success"`
	Data    []Notification `json:"data"`
	Count   int            `json:"count"`
	Limit   int64          `json:"limit"`
	Offset  int64          `json:"offset"`
}

type retryResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	RetryCount int    `json:"retry_count"`
}

// NotificationHandler contém os handlers HTTP
type NotificationHandler struct {
	dispatcher DispatcherInterface
	tracer     trace.Tracer
}

func NewNotificationHandler(dispatcher DispatcherInterface, tracer trace.Tracer) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		tracer:     tracer,
	}
}

func (h *NotificationHandler) Register(r gin.IRouter) {
	notifications := r.Group("/api/v1/notifications")
	notifications.GET("", h.List)
	notifications.GET("/stats", h.Stats)
	notifications.GET("/:id", h.Get)
	notifications.POST("/retry-failed", h.RetryFailed)
}

func (h *NotificationHandler) List(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.list_notifications")
	defer span.End()

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.BindError(c, err)
		return
	}

	notifications, err := h.dispatcher.List(ctx, NotificationFilter{
		Recipient: q.Recipient,
		Status:    q.Status,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Success: true,
		Data:    notifications,
		Count:   len(notifications),
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
}

func (h *NotificationHandler) Stats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.notification_stats")
	defer span.End()

	stats, err := h.dispatcher.Stats(ctx)
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *NotificationHandler) Get(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_notification")
	defer span.End()

	n, err := h.dispatcher.Get(ctx, c.Param("id"))
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) RetryFailed(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.retry_failed_notifications")
	defer span.End()

	retried, err := h.dispatcher.RetryFailed(ctx)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	span.SetAttributes(attribute.Int("retry_count", retried))
	c.JSON(http.StatusOK, retryResponse{
		Success:    true,
		Message:    fmt.Sprintf("Retried %d failed notifications", retried),
		RetryCount: retried,
	})
}
