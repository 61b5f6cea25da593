package main

import "time"

const (
	EventProductCreated      = "product.created"
	EventProductUpdated      = "product.updated"
	EventProductDeleted      = "product.deleted"
	EventProductStockUpdated = "product.stock_updated"
	EventCategoryCreated     = "category.created"
	EventCategoryUpdated     = "category.updated"
	EventCategoryDeleted     = "category.deleted"
)

type ProductEvent struct {
	EventType     string    `json:"event_type"`
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price,omitempty"`
	CategoryID    *string   `json:"category_id,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	Timestamp     time.Time `json:"timestamp"`
}

func newProductEvent(eventType string, p *Product, at time.Time) ProductEvent {
	return ProductEvent{
		EventType:     eventType,
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		CategoryID:    p.CategoryID,
		StockQuantity: p.StockQuantity,
		Timestamp:     at,
	}
}

// StockUpdatedEvent is what the notification service watches for low stock.
type StockUpdatedEvent struct {
	EventType     string    `json:"event_type"`
	ProductID     string    `json:"product_id"`
	StockQuantity int       `json:"stock_quantity"`
	PreviousStock int       `json:"previous_stock"`
	Timestamp     time.Time `json:"timestamp"`
}

type CategoryEvent struct {
	EventType   string    `json:"event_type"`
	CategoryID  string    `json:"category_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func newCategoryEvent(eventType string, c *Category, at time.Time) CategoryEvent {
	return CategoryEvent{
		EventType:   eventType,
		CategoryID:  c.ID,
		Name:        c.Name,
		Description: c.Description,
		Timestamp:   at,
	}
}
