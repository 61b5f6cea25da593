package main

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/events"
)

const (
	eventUserRegistered      = "user.registered"
	eventProductStockUpdated = "product.stock_updated"
)

const (
	welcomeSubject  = "Welcome to E-commerce Platform!"
	lowStockSubject = "Low Stock Alert"
)

// Creator is the part of the dispatcher the event handler needs.
type Creator interface {
	Create(ctx context.Context, draft Draft) (*Notification, error)
}

// EventHandler turns domain events into notifications.
type EventHandler struct {
	creator           Creator
	adminEmail        string
	lowStockThreshold int
	logger            *zap.Logger
}

func NewEventHandler(creator Creator, adminEmail string, lowStockThreshold int, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		creator:           creator,
		adminEmail:        adminEmail,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

func (h *EventHandler) Handle(ctx context.Context, topic string, env events.Envelope) error {
	switch env.EventType {
	case eventUserRegistered:
		return h.userRegistered(ctx, env)
	case eventProductStockUpdated:
		return h.stockUpdated(ctx, env)
	default:
		h.logger.Info("Event processed without notification",
			zap.String("topic", topic),
			zap.String("event_type", env.EventType),
			zap.String("service", env.Service),
		)
		return nil
	}
}

func (h *EventHandler) userRegistered(ctx context.Context, env events.Envelope) error {
	var data struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("invalid %s payload: %w", env.EventType, err)
	}
	if data.Email == "" {
		h.logger.Warn("User registered event without email, skipping")
		return nil
	}

	_, err := h.creator.Create(ctx, Draft{
		Type:          TypeEmail,
		Recipient:     data.Email,
		Subject:       welcomeSubject,
		Message:       fmt.Sprintf("Hello %s, welcome to our platform! We're excited to have you on board.", data.Name),
		EventType:     env.EventType,
		EventData:     rawObject(env.Data),
		SourceService: env.Service,
		Priority:      3,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Created welcome notification", zap.String("recipient", data.Email))
	return nil
}

func (h *EventHandler) stockUpdated(ctx context.Context, env events.Envelope) error {
	var data struct {
		ProductID     string `json:"product_id"`
		StockQuantity *int   `json:"stock_quantity"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("invalid %s payload: %w", env.EventType, err)
	}
	if data.StockQuantity == nil || *data.StockQuantity >= h.lowStockThreshold {
		return nil
	}

	_, err := h.creator.Create(ctx, Draft{
		Type:          TypeEmail,
		Recipient:     h.adminEmail,
		Subject:       lowStockSubject,
		Message:       fmt.Sprintf("Product %s has low stock: %d units remaining.", data.ProductID, *data.StockQuantity),
		EventType:     env.EventType,
		EventData:     rawObject(env.Data),
		SourceService: env.Service,
		Priority:      4,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Created low stock alert", zap.String("product_id", data.ProductID))
	return nil
}

// rawObject decodes an event payload for storage, empty when it is not an object.
func rawObject(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}
