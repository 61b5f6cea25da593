package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matheusmosca/ecommerce-microservices/internal/server"
)

type CatalogUseCaseInterface interface {
	CreateCategory(ctx context.Context, req CategoryCreateRequest) (*Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context, skip, limit int, activeOnly bool) ([]Category, error)
	UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, req ProductCreateRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, page, perPage int) (*ProductList, error)
	SearchProducts(ctx context.Context, q SearchQuery) (*ProductList, error)
	UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, change int) (*Product, error)
}

type categoriesQuery struct {
	Skip       int  `form:"skip,default=0" binding:"gte=0"`
	Limit      int  `form:"limit,default=100" binding:"gte=1,lte=100"`
	ActiveOnly bool `form:"active_only,default=true"`
}

type productsQuery struct {
	Page    int `form:"page,default=1" binding:"gte=1"`
	PerPage int `form:"per_page,default=20" binding:"gte=1,lte=100"`
}

type searchQuery struct {
	productsQuery
	Query       string   `form:"query"`
	CategoryID  string   `form:"category_id"`
	MinPrice    *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice    *float64 `form:"max_price" binding:"omitempty,gte=0"`
	Tags        string   `form:"tags"`
	IsAvailable *bool    `form:"is_available"`
}

func (q searchQuery) toSearch() SearchQuery {
	return SearchQuery{
		Query:       strings.TrimSpace(q.Query),
		CategoryID:  q.CategoryID,
		MinPrice:    q.MinPrice,
		MaxPrice:    q.MaxPrice,
		Tags:        splitTags(q.Tags),
		IsAvailable: q.IsAvailable,
		Page:        q.Page,
		PerPage:     q.PerPage,
	}
}

// splitTags parses "a, b,,c" into [a b c].
func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// CatalogHandler contém os handlers HTTP
type CatalogHandler struct {
	useCase CatalogUseCaseInterface
	tracer  trace.Tracer
}

func NewCatalogHandler(useCase CatalogUseCaseInterface, tracer trace.Tracer) *CatalogHandler {
	return &CatalogHandler{
		useCase: useCase,
		tracer:  tracer,
	}
}

func (h *CatalogHandler) Register(r gin.IRouter) {
	categories := r.Group("/api/v1/categories")
	categories.POST("", h.CreateCategory)
	categories.GET("", h.ListCategories)
	categories.GET("/:id", h.GetCategory)
	categories.PUT("/:id", h.UpdateCategory)
	categories.DELETE("/:id", h.DeleteCategory)

	products := r.Group("/api/v1/products")
	products.POST("", h.CreateProduct)
	products.GET("", h.ListProducts)
	products.GET("/search", h.SearchProducts)
	products.GET("/:id", h.GetProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.DELETE("/:id", h.DeleteProduct)
	products.PATCH("/:id/stock", h.UpdateStock)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.create_category")
	defer span.End()

	var req CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	category, err := h.useCase.CreateCategory(ctx, req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, server.StandardResponse{
		Success: true,
		Message: "Category created successfully",
		Data:    category,
	})
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.list_categories")
	defer span.End()

	var q categoriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.BindError(c, err)
		return
	}

	categories, err := h.useCase.ListCategories(ctx, q.Skip, q.Limit, q.ActiveOnly)
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, categories)
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_category")
	defer span.End()

	category, err := h.useCase.GetCategory(ctx, c.Param("id"))
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_category")
	defer span.End()

	var patch CategoryPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		server.BindError(c, err)
		return
	}

	category, err := h.useCase.UpdateCategory(ctx, c.Param("id"), patch)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Category updated successfully",
		Data:    category,
	})
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.delete_category")
	defer span.End()

	if err := h.useCase.DeleteCategory(ctx, c.Param("id")); err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Category deleted successfully",
	})
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.create_product")
	defer span.End()

	var req ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	product, err := h.useCase.CreateProduct(ctx, req)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	span.SetAttributes(attribute.String("product_id", product.ID))
	c.JSON(http.StatusCreated, server.StandardResponse{
		Success: true,
		Message: "Product created successfully",
		Data:    product,
	})
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.list_products")
	defer span.End()

	var q productsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.BindError(c, err)
		return
	}

	list, err := h.useCase.ListProducts(ctx, q.Page, q.PerPage)
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) SearchProducts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.search_products")
	defer span.End()

	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		server.BindError(c, err)
		return
	}

	list, err := h.useCase.SearchProducts(ctx, q.toSearch())
	if err != nil {
		server.Fail(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("result.total", list.Total))
	c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.get_product")
	defer span.End()

	product, err := h.useCase.GetProduct(ctx, c.Param("id"))
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_product")
	defer span.End()

	var patch ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		server.BindError(c, err)
		return
	}

	product, err := h.useCase.UpdateProduct(ctx, c.Param("id"), patch)
	if err != nil {
		span.RecordError(err)
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Product updated successfully",
		Data:    product,
	})
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.delete_product")
	defer span.End()

	if err := h.useCase.DeleteProduct(ctx, c.Param("id")); err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Product deleted successfully",
	})
}

func (h *CatalogHandler) UpdateStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.update_stock")
	defer span.End()

	var req StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.BindError(c, err)
		return
	}

	product, err := h.useCase.AdjustStock(ctx, c.Param("id"), *req.QuantityChange)
	if err != nil {
		server.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, server.StandardResponse{
		Success: true,
		Message: "Stock updated successfully",
		Data:    product,
	})
}
