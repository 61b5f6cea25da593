package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS shipping_addresses (
	id             UUID PRIMARY KEY,
	full_name      TEXT NOT NULL,
	address_line_1 TEXT NOT NULL,
	address_line_2 TEXT,
	city           TEXT NOT NULL,
	state          TEXT NOT NULL,
	postal_code    TEXT NOT NULL,
	country        TEXT NOT NULL,
	phone          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id                     UUID PRIMARY KEY,
	order_number           TEXT NOT NULL,
	user_id                TEXT NOT NULL,
	user_email             TEXT NOT NULL,
	items                  JSONB NOT NULL DEFAULT '[]',
	subtotal               NUMERIC(12,2) NOT NULL DEFAULT 0,
	tax_amount             NUMERIC(12,2) NOT NULL DEFAULT 0,
	shipping_cost          NUMERIC(12,2) NOT NULL DEFAULT 0,
	discount_amount        NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_amount           NUMERIC(12,2) NOT NULL DEFAULT 0,
	status                 TEXT NOT NULL,
	payment_status         TEXT NOT NULL,
	shipping_address_id    UUID REFERENCES shipping_addresses(id),
	shipping_address       JSONB NOT NULL,
	shipping_method        TEXT,
	tracking_number        TEXT,
	payment_method         TEXT,
	payment_transaction_id TEXT,
	created_at             TIMESTAMPTZ NOT NULL,
	updated_at             TIMESTAMPTZ NOT NULL,
	confirmed_at           TIMESTAMPTZ,
	shipped_at             TIMESTAMPTZ,
	delivered_at           TIMESTAMPTZ,
	notes                  TEXT,
	metadata               JSONB NOT NULL DEFAULT '{}'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number ON orders (order_number);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);
CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders (payment_status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC);
`

const orderColumns = `
	id, order_number, user_id, user_email, items, subtotal, tax_amount, shipping_cost,
	discount_amount, total_amount, status, payment_status, shipping_address,
	shipping_method, tracking_number, payment_method, payment_transaction_id,
	created_at, updated_at, confirmed_at, shipped_at, delivered_at, notes, metadata`

// OrderFilter narrows List and Count. Empty fields match everything.
type OrderFilter struct {
	UserID        string
	Status        string
	PaymentStatus string
	Limit         int
	Offset        int
}

// Repository define a interface para operações de banco de dados de pedidos
type Repository interface {
	Migrate(ctx context.Context) error
	CreateAddress(ctx context.Context, address *ShippingAddress) error
	CreateOrder(ctx context.Context, order *Order) error
	// GetOrder returns nil, nil for unknown or malformed ids.
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error)
	CountOrders(ctx context.Context, filter OrderFilter) (int64, error)
	SaveOrder(ctx context.Context, order *Order) error
	StatusAggregates(ctx context.Context) ([]StatusAggregate, error)
}

// OrderRepository implementa Repository usando PostgreSQL
type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) Repository {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply orders schema: %w", err)
	}
	return nil
}

func (r *OrderRepository) CreateAddress(ctx context.Context, address *ShippingAddress) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO shipping_addresses (id, full_name, address_line_1, address_line_2, city, state, postal_code, country, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, address.ID, address.FullName, address.AddressLine1, address.AddressLine2, address.City,
		address.State, address.PostalCode, address.Country, address.Phone, address.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert shipping address: %w", err)
	}
	return nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`, shipping_address_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`, order.ID, order.OrderNumber, order.UserID, order.UserEmail, order.Items, order.Subtotal,
		order.TaxAmount, order.ShippingCost, order.DiscountAmount, order.TotalAmount, order.Status,
		order.PaymentStatus, order.ShippingAddress, order.ShippingMethod, order.TrackingNumber,
		order.PaymentMethod, order.PaymentTransactionID, order.CreatedAt, order.UpdatedAt,
		order.ConfirmedAt, order.ShippedAt, order.DeliveredAt, order.Notes, order.Metadata,
		order.ShippingAddress.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil
	}

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	where, args := filter.where()
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func (r *OrderRepository) CountOrders(ctx context.Context, filter OrderFilter) (int64, error) {
	where, args := filter.where()

	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// SaveOrder writes back every mutable column of the order.
func (r *OrderRepository) SaveOrder(ctx context.Context, order *Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET items = $2, subtotal = $3, tax_amount = $4, shipping_cost = $5, discount_amount = $6,
		    total_amount = $7, status = $8, payment_status = $9, shipping_method = $10,
		    tracking_number = $11, payment_method = $12, payment_transaction_id = $13,
		    updated_at = $14, confirmed_at = $15, shipped_at = $16, delivered_at = $17,
		    notes = $18, metadata = $19
		WHERE id = $1
	`, order.ID, order.Items, order.Subtotal, order.TaxAmount, order.ShippingCost, order.DiscountAmount,
		order.TotalAmount, order.Status, order.PaymentStatus, order.ShippingMethod,
		order.TrackingNumber, order.PaymentMethod, order.PaymentTransactionID,
		order.UpdatedAt, order.ConfirmedAt, order.ShippedAt, order.DeliveredAt,
		order.Notes, order.Metadata)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update order %s: no rows affected", order.ID)
	}
	return nil
}

func (r *OrderRepository) StatusAggregates(ctx context.Context) ([]StatusAggregate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)::float8
		FROM orders
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	defer rows.Close()

	var aggregates []StatusAggregate
	for rows.Next() {
		var agg StatusAggregate
		if err := rows.Scan(&agg.Status, &agg.Count, &agg.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan order aggregate: %w", err)
		}
		aggregates = append(aggregates, agg)
	}

	return aggregates, rows.Err()
}

func (f OrderFilter) where() (string, []any) {
	var clauses []string
	var args []any

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("user_id", f.UserID)
	add("status", f.Status)
	add("payment_status", f.PaymentStatus)

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.UserEmail, &o.Items, &o.Subtotal, &o.TaxAmount,
		&o.ShippingCost, &o.DiscountAmount, &o.TotalAmount, &o.Status, &o.PaymentStatus,
		&o.ShippingAddress, &o.ShippingMethod, &o.TrackingNumber, &o.PaymentMethod,
		&o.PaymentTransactionID, &o.CreatedAt, &o.UpdatedAt, &o.ConfirmedAt, &o.ShippedAt,
		&o.DeliveredAt, &o.Notes, &o.Metadata,
	)
	if err != nil {
		return nil, err
	}
	if o.Metadata == nil {
		o.Metadata = map[string]any{}
	}
	return &o, nil
}
