package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the possible states of an order
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// PaymentStatus represents the possible states of an order payment
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

var (
	OrderStatuses   = []string{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded}
	PaymentStatuses = []string{PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded}
)

// ProductSnapshot freezes the product fields an order line was priced with.
type ProductSnapshot struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	CategoryName *string  `json:"category_name"`
	ImageURLs    []string `json:"image_urls"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductSKU      *string         `json:"product_sku"`
	UnitPrice       float64         `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	TotalPrice      float64         `json:"total_price"`
	ProductSnapshot ProductSnapshot `json:"product_snapshot"`
}

// NewOrderItem builds a line from a product snapshot. TotalPrice is derived.
func NewOrderItem(product *Product, quantity int) OrderItem {
	return OrderItem{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		TotalPrice:  LineTotal(product.Price, quantity),
		ProductSnapshot: ProductSnapshot{
			Name:         product.Name,
			Description:  product.Description,
			Price:        product.Price,
			CategoryName: product.CategoryName,
			ImageURLs:    product.ImageURLs,
		},
	}
}

// ShippingAddress is persisted on its own and embedded into the order.
type ShippingAddress struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	AddressLine1 string    `json:"address_line_1"`
	AddressLine2 *string   `json:"address_line_2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        *string   `json:"phone"`
	CreatedAt    time.Time `json:"-"`
}

// Order represents a customer order
type Order struct {
	ID                   string          `json:"id"`
	OrderNumber          string          `json:"order_number"`
	UserID               string          `json:"user_id"`
	UserEmail            string          `json:"user_email"`
	Items                []OrderItem     `json:"items"`
	Subtotal             float64         `json:"subtotal"`
	TaxAmount            float64         `json:"tax_amount"`
	ShippingCost         float64         `json:"shipping_cost"`
	DiscountAmount       float64         `json:"discount_amount"`
	TotalAmount          float64         `json:"total_amount"`
	Status               string          `json:"status"`
	PaymentStatus        string          `json:"payment_status"`
	ShippingAddress      ShippingAddress `json:"shipping_address"`
	ShippingMethod       *string         `json:"shipping_method"`
	TrackingNumber       *string         `json:"tracking_number"`
	PaymentMethod        *string         `json:"payment_method"`
	PaymentTransactionID *string         `json:"payment_transaction_id"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ConfirmedAt          *time.Time      `json:"confirmed_at"`
	ShippedAt            *time.Time      `json:"shipped_at"`
	DeliveredAt          *time.Time      `json:"delivered_at"`
	Notes                *string         `json:"notes"`
	Metadata             map[string]any  `json:"metadata"`
}

// NewOrder creates a pending order and derives its totals from the items.
func NewOrder(userID, userEmail string, items []OrderItem, address ShippingAddress, now time.Time) *Order {
	order := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     GenerateOrderNumber(now),
		UserID:          userID,
		UserEmail:       userEmail,
		Items:           items,
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
		Metadata:        map[string]any{},
	}
	order.ApplyPricing()
	return order
}

// GenerateOrderNumber returns ORD-<UTC YYYYMMDDHHMMSS>-<8 upper-case hex chars>.
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

// ApplyPricing recomputes every derived money field. Line totals always follow
// unit price and quantity; the subtotal follows the lines when there are any.
func (o *Order) ApplyPricing() {
	for i := range o.Items {
		o.Items[i].TotalPrice = LineTotal(o.Items[i].UnitPrice, o.Items[i].Quantity)
	}
	if len(o.Items) > 0 {
		o.Subtotal = Subtotal(o.Items)
	}
	o.TaxAmount = Tax(o.Subtotal)
	o.ShippingCost = ShippingCost(o.Subtotal)
	o.TotalAmount = Total(o.Subtotal, o.TaxAmount, o.ShippingCost, o.DiscountAmount)
}

func (o *Order) IsEditable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o *Order) IsCancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed || o.Status == OrderStatusProcessing
}

// ItemCount is the number of units across all lines.
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// TransitionTo sets the status and stamps the milestone timestamp the first
// time the order enters confirmed, shipped or delivered.
func (o *Order) TransitionTo(status string, now time.Time) {
	o.Status = status
	o.UpdatedAt = now

	stamp := func(field **time.Time) {
		if *field == nil {
			t := now
			*field = &t
		}
	}

	switch status {
	case OrderStatusConfirmed:
		stamp(&o.ConfirmedAt)
	case OrderStatusShipped:
		stamp(&o.ShippedAt)
	case OrderStatusDelivered:
		stamp(&o.DeliveredAt)
	}
}

// AppendNote adds "<timestamp>: <note>" as a new line of the notes log.
func (o *Order) AppendNote(note string, now time.Time) {
	line := fmt.Sprintf("%s: %s", now.UTC().Format(time.RFC3339Nano), note)
	if o.Notes == nil || *o.Notes == "" {
		o.Notes = &line
		return
	}
	joined := *o.Notes + "\n" + line
	o.Notes = &joined
}

// OrderResponse adds the derived predicates to the order representation.
type OrderResponse struct {
	*Order
	ItemCount     int  `json:"item_count"`
	IsEditable    bool `json:"is_editable"`
	IsCancellable bool `json:"is_cancellable"`
}

func NewOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		Order:         o,
		ItemCount:     o.ItemCount(),
		IsEditable:    o.IsEditable(),
		IsCancellable: o.IsCancellable(),
	}
}

// OrderList is a page of orders.
type OrderList struct {
	Orders     []OrderResponse `json:"orders"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
}

// OrderStats summarises the whole order book.
type OrderStats struct {
	TotalOrders       int64   `json:"total_orders"`
	PendingOrders     int64   `json:"pending_orders"`
	ConfirmedOrders   int64   `json:"confirmed_orders"`
	ProcessingOrders  int64   `json:"processing_orders"`
	ShippedOrders     int64   `json:"shipped_orders"`
	DeliveredOrders   int64   `json:"delivered_orders"`
	CancelledOrders   int64   `json:"cancelled_orders"`
	TotalRevenue      float64 `json:"total_revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// StatusAggregate is one row of the per-status grouping used to build stats.
type StatusAggregate struct {
	Status      string
	Count       int64
	TotalAmount float64
}

// BuildOrderStats folds per-status aggregates into OrderStats. Revenue counts
// delivered orders only; the average runs over every order.
func BuildOrderStats(rows []StatusAggregate) OrderStats {
	var stats OrderStats
	var grandTotal float64

	for _, row := range rows {
		stats.TotalOrders += row.Count
		grandTotal += row.TotalAmount

		switch row.Status {
		case OrderStatusPending:
			stats.PendingOrders = row.Count
		case OrderStatusConfirmed:
			stats.ConfirmedOrders = row.Count
		case OrderStatusProcessing:
			stats.ProcessingOrders = row.Count
		case OrderStatusShipped:
			stats.ShippedOrders = row.Count
		case OrderStatusDelivered:
			stats.DeliveredOrders = row.Count
			stats.TotalRevenue = Round2(stats.TotalRevenue + row.TotalAmount)
		case OrderStatusCancelled:
			stats.CancelledOrders = row.Count
		}
	}

	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = Round2(grandTotal / float64(stats.TotalOrders))
	}

	return stats
}

func isValidOrderStatus(status string) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func isValidPaymentStatus(status string) bool {
	for _, s := range PaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}
