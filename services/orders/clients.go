package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/matheusmosca/ecommerce-microservices/internal/config"
)

// Reservation failure reasons reported per line.
const (
	ReasonProductNotFound     = "Product not found"
	ReasonProductNotAvailable = "Product not available"
	ReasonInsufficientStock   = "Insufficient stock"
	ReasonServiceError        = "Service error"
)

// UserIdentity is what the user service answers for a valid credential.
type UserIdentity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Product is the subset of the catalog representation the order flow reads.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	CategoryName  *string  `json:"category_name"`
	SKU           *string  `json:"sku"`
	StockQuantity int      `json:"stock_quantity"`
	IsAvailable   bool     `json:"is_available"`
	IsActive      bool     `json:"is_active"`
	ImageURLs     []string `json:"image_urls"`
}

// LineRequest is one (product, quantity) pair to reserve.
type LineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// LineReservation is the outcome for one requested line.
type LineReservation struct {
	ProductID string
	Quantity  int
	Reserved  bool
	Reason    string
	Product   *Product
}

// ReservationResult holds the per-line outcomes in request order.
type ReservationResult struct {
	Lines []LineReservation
}

func (r ReservationResult) Success() bool {
	for _, line := range r.Lines {
		if !line.Reserved {
			return false
		}
	}
	return true
}

func (r ReservationResult) Failed() []LineReservation {
	var failed []LineReservation
	for _, line := range r.Lines {
		if !line.Reserved {
			failed = append(failed, line)
		}
	}
	return failed
}

// IdentityVerifier resolves a bearer credential into a user. A nil identity
// with a nil error means the credential was rejected.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*UserIdentity, error)
}

// InventoryReserver checks and decrements stock for order lines.
type InventoryReserver interface {
	Reserve(ctx context.Context, lines []LineRequest) ReservationResult
}

func newRestyClient(peer config.PeerConfig) *resty.Client {
	timeout := peer.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(peer.URL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	// propagate the active trace to the peer service
	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(r.Header))
		return nil
	})

	return client
}

// UserServiceClient implements IdentityVerifier against the user service.
type UserServiceClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewUserServiceClient(peer config.PeerConfig, logger *zap.Logger) *UserServiceClient {
	return &UserServiceClient{
		client: newRestyClient(peer),
		logger: logger,
	}
}

func (c *UserServiceClient) Verify(ctx context.Context, token string) (*UserIdentity, error) {
	var user UserIdentity
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get("/api/v1/users/profile")
	if err != nil {
		return nil, fmt.Errorf("failed to call user service: %w", err)
	}

	if !resp.IsSuccess() {
		c.logger.Warn("Token verification rejected", zap.Int("status", resp.StatusCode()))
		return nil, nil
	}

	return &user, nil
}

// ProductServiceClient implements InventoryReserver against the product service.
type ProductServiceClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewProductServiceClient(peer config.PeerConfig, logger *zap.Logger) *ProductServiceClient {
	return &ProductServiceClient{
		client: newRestyClient(peer),
		logger: logger,
	}
}

// GetProduct returns nil, nil when the product does not exist.
func (c *ProductServiceClient) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", productID).
		SetResult(&product).
		Get("/api/v1/products/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, nil
	case !resp.IsSuccess():
		return nil, fmt.Errorf("product service answered %d for product %s", resp.StatusCode(), productID)
	}

	return &product, nil
}

// UpdateStock applies a signed stock delta. It returns the status code the
// product service answered with.
func (c *ProductServiceClient) UpdateStock(ctx context.Context, productID string, quantityChange int) (int, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", productID).
		SetBody(map[string]int{"quantity_change": quantityChange}).
		Patch("/api/v1/products/{id}/stock")
	if err != nil {
		return 0, fmt.Errorf("failed to update stock of product %s: %w", productID, err)
	}

	return resp.StatusCode(), nil
}

// Reserve checks each line and decrements the stock of the lines that pass.
// Lines that were decremented are not restored when a later line fails.
func (c *ProductServiceClient) Reserve(ctx context.Context, lines []LineRequest) ReservationResult {
	result := ReservationResult{Lines: make([]LineReservation, 0, len(lines))}

	for _, line := range lines {
		result.Lines = append(result.Lines, c.reserveLine(ctx, line))
	}

	return result
}

func (c *ProductServiceClient) reserveLine(ctx context.Context, line LineRequest) LineReservation {
	outcome := LineReservation{ProductID: line.ProductID, Quantity: line.Quantity}

	product, err := c.GetProduct(ctx, line.ProductID)
	if err != nil {
		c.logger.Error("Product availability check failed", zap.String("product_id", line.ProductID), zap.Error(err))
		outcome.Reason = ReasonServiceError
		return outcome
	}

	switch {
	case product == nil:
		outcome.Reason = ReasonProductNotFound
		return outcome
	case !product.IsAvailable:
		outcome.Reason = ReasonProductNotAvailable
		return outcome
	case product.StockQuantity < line.Quantity:
		outcome.Reason = ReasonInsufficientStock
		return outcome
	}

	status, err := c.UpdateStock(ctx, line.ProductID, -line.Quantity)
	switch {
	case err != nil:
		c.logger.Error("Stock decrement failed", zap.String("product_id", line.ProductID), zap.Error(err))
		outcome.Reason = ReasonServiceError
		return outcome
	case status == http.StatusBadRequest:
		// someone else took the stock between the check and the decrement
		outcome.Reason = ReasonInsufficientStock
		return outcome
	case status == http.StatusNotFound:
		outcome.Reason = ReasonProductNotFound
		return outcome
	case status < 200 || status >= 300:
		c.logger.Error("Stock decrement rejected", zap.String("product_id", line.ProductID), zap.Int("status", status))
		outcome.Reason = ReasonServiceError
		return outcome
	}

	outcome.Reserved = true
	outcome.Product = product
	return outcome
}
