package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/matheusmosca/ecommerce-microservices/internal/apperr"
	"github.com/matheusmosca/ecommerce-microservices/internal/events"
	"github.com/matheusmosca/ecommerce-microservices/internal/observability"
	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

var (
	errCategoryNameTaken = apperr.Conflict("Category with this name already exists")
	errSKUTaken          = apperr.Conflict("Product with this SKU already exists")
	errUnknownCategory   = apperr.BadRequest("Category not found")
)

// SearchQuery is the product search filter after query-string parsing.
type SearchQuery struct {
	Query       string
	CategoryID  string
	MinPrice    *float64
	MaxPrice    *float64
	Tags        []string
	IsAvailable *bool
	Page        int
	PerPage     int
}

// CatalogUseCase contém a lógica de negócio do catálogo
type CatalogUseCase struct {
	repository Repository
	emitter    events.Emitter
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time

	stockAdjustments metric.Int64Counter
}

func NewCatalogUseCase(repository Repository, emitter events.Emitter, tracer trace.Tracer, logger *zap.Logger) *CatalogUseCase {
	stockAdjustments, _ := otel.Meter("product-service").Int64Counter("products.stock_adjustments",
		metric.WithDescription("Stock adjustment requests, by outcome"))

	return &CatalogUseCase{
		repository:       repository,
		emitter:          emitter,
		tracer:           tracer,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
		stockAdjustments: stockAdjustments,
	}
}

func (uc *CatalogUseCase) CreateCategory(ctx context.Context, req CategoryCreateRequest) (*Category, error) {
	existing, err := uc.repository.GetCategoryByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errCategoryNameTaken
	}

	category := NewCategory(req, uc.now())
	if err := uc.repository.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errCategoryNameTaken
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	uc.publish(ctx, EventCategoryCreated, category.ID, newCategoryEvent(EventCategoryCreated, category, category.CreatedAt))
	return category, nil
}

func (uc *CatalogUseCase) GetCategory(ctx context.Context, id string) (*Category, error) {
	category, err := uc.repository.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperr.NotFound("Category not found")
	}
	return category, nil
}

func (uc *CatalogUseCase) ListCategories(ctx context.Context, skip, limit int, activeOnly bool) ([]Category, error) {
	return uc.repository.ListCategories(ctx, skip, limit, activeOnly)
}

func (uc *CatalogUseCase) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*Category, error) {
	category, err := uc.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != category.Name {
		other, err := uc.repository.GetCategoryByName(ctx, *patch.Name)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, errCategoryNameTaken
		}
	}

	patch.Apply(category)
	category.UpdatedAt = uc.now()

	if err := uc.repository.SaveCategory(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errCategoryNameTaken
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	uc.publish(ctx, EventCategoryUpdated, category.ID, newCategoryEvent(EventCategoryUpdated, category, category.UpdatedAt))
	return category, nil
}

func (uc *CatalogUseCase) DeleteCategory(ctx context.Context, id string) error {
	category, err := uc.GetCategory(ctx, id)
	if err != nil {
		return err
	}

	category.IsActive = false
	category.UpdatedAt = uc.now()
	if err := uc.repository.SaveCategory(ctx, category); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	uc.publish(ctx, EventCategoryDeleted, category.ID, newCategoryEvent(EventCategoryDeleted, category, category.UpdatedAt))
	return nil
}

func (uc *CatalogUseCase) CreateProduct(ctx context.Context, req ProductCreateRequest) (*Product, error) {
	if req.SKU != nil {
		existing, err := uc.repository.GetProductBySKU(ctx, *req.SKU)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errSKUTaken
		}
	}

	category, err := uc.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	product := NewProduct(req, category, uc.now())
	if err := uc.repository.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errSKUTaken
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	uc.logger.Info("✅ Product created", zap.String("product_id", product.ID))
	uc.publish(ctx, EventProductCreated, product.ID, newProductEvent(EventProductCreated, product, product.CreatedAt))
	return product, nil
}

// resolveCategory returns nil for an absent id and BadRequest for an unknown one.
func (uc *CatalogUseCase) resolveCategory(ctx context.Context, id *string) (*Category, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	category, err := uc.repository.GetCategory(ctx, *id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, errUnknownCategory
	}
	return category, nil
}

// GetProduct returns an active product or NotFound.
func (uc *CatalogUseCase) GetProduct(ctx context.Context, id string) (*Product, error) {
	product, err := uc.repository.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, apperr.NotFound("Product not found")
	}
	return product, nil
}

func (uc *CatalogUseCase) ListProducts(ctx context.Context, page, perPage int) (*ProductList, error) {
	return uc.SearchProducts(ctx, SearchQuery{Page: page, PerPage: perPage})
}

// SearchProducts pages through active products matching q. A category id
// that is not a uuid matches nothing.
func (uc *CatalogUseCase) SearchProducts(ctx context.Context, q SearchQuery) (*ProductList, error) {
	if q.CategoryID != "" {
		if _, err := uuid.Parse(q.CategoryID); err != nil {
			return &ProductList{Products: []Product{}, Page: q.Page, PerPage: q.PerPage}, nil
		}
	}

	products, total, err := uc.repository.ListProducts(ctx, ProductFilter{
		Query:       q.Query,
		CategoryID:  q.CategoryID,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		Tags:        q.Tags,
		IsAvailable: q.IsAvailable,
		Limit:       q.PerPage,
		Offset:      server.Offset(q.Page, q.PerPage),
	})
	if err != nil {
		return nil, err
	}

	return &ProductList{
		Products:   products,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: server.TotalPages(total, q.PerPage),
	}, nil
}

// UpdateProduct applies patch to a stored product. Inactive products can be
// patched, which is how they are reactivated.
func (uc *CatalogUseCase) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	product, err := uc.repository.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperr.NotFound("Product not found")
	}

	if patch.SKU != nil && (product.SKU == nil || *patch.SKU != *product.SKU) {
		other, err := uc.repository.GetProductBySKU(ctx, *patch.SKU)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != product.ID {
			return nil, errSKUTaken
		}
	}

	category, err := uc.resolveCategory(ctx, patch.CategoryID)
	if err != nil {
		return nil, err
	}

	patch.Apply(product, category)
	product.UpdatedAt = uc.now()

	if err := uc.repository.SaveProduct(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errSKUTaken
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	uc.publish(ctx, EventProductUpdated, product.ID, newProductEvent(EventProductUpdated, product, product.UpdatedAt))
	return product, nil
}

func (uc *CatalogUseCase) DeleteProduct(ctx context.Context, id string) error {
	product, err := uc.repository.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return apperr.NotFound("Product not found")
	}

	product.IsActive = false
	product.UpdatedAt = uc.now()
	if err := uc.repository.SaveProduct(ctx, product); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	uc.publish(ctx, EventProductDeleted, product.ID, newProductEvent(EventProductDeleted, product, product.UpdatedAt))
	return nil
}

// AdjustStock adds change (possibly negative) to the product's stock under a
// row lock and records the movement. The stock never goes below zero.
func (uc *CatalogUseCase) AdjustStock(ctx context.Context, id string, change int) (product *Product, err error) {
	ctx, span := observability.StartStepSpan(ctx, uc.tracer, "adjust_stock", "locked_update",
		attribute.String("product_id", id),
		attribute.Int("quantity_change", change),
	)
	defer func() {
		observability.EndSpan(span, err)
		uc.stockAdjustments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", adjustmentOutcome(err))))
	}()

	var previous int
	err = uc.repository.Transaction(ctx, func(tx Repository) error {
		locked, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperr.NotFound("Product not found")
		}

		previous = locked.StockQuantity
		next := previous + change
		if next < 0 {
			return apperr.BadRequest("Insufficient stock")
		}

		now := uc.now()
		locked.StockQuantity = next
		locked.IsAvailable = next > 0
		locked.UpdatedAt = now
		if err := tx.SaveProduct(ctx, locked); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		movement := &StockMovement{
			ID:             uuid.New().String(),
			ProductID:      locked.ID,
			ChangeQuantity: change,
			PreviousStock:  previous,
			NewStock:       next,
			CreatedAt:      now,
		}
		if err := tx.CreateMovement(ctx, movement); err != nil {
			return err
		}

		product = locked
		return nil
	})
	if err != nil {
		uc.logger.Warn("Stock adjustment rejected",
			zap.String("product_id", id),
			zap.Int("quantity_change", change),
			zap.Error(err),
		)
		return nil, err
	}

	uc.publish(ctx, EventProductStockUpdated, product.ID, StockUpdatedEvent{
		EventType:     EventProductStockUpdated,
		ProductID:     product.ID,
		StockQuantity: product.StockQuantity,
		PreviousStock: previous,
		Timestamp:     product.UpdatedAt,
	})
	return product, nil
}

// adjustmentOutcome labels a stock adjustment for the counter.
func adjustmentOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}

func (uc *CatalogUseCase) publish(ctx context.Context, eventType, key string, payload any) {
	uc.emitter.Emit(ctx, events.TopicProductEvents, eventType, key, payload).Log(uc.logger)
}
