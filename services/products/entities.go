package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Category agrupa produtos do catálogo
type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description *string   `gorm:"type:varchar(500)" json:"description"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// Product is a catalog entry. CategoryName is copied from the category
// whenever CategoryID is written.
type Product struct {
	ID            string             `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string             `gorm:"type:varchar(200);not null" json:"name"`
	Description   string             `gorm:"type:text;not null" json:"description"`
	Price         float64            `gorm:"type:numeric(12,2);not null;index" json:"price"`
	CategoryID    *string            `gorm:"type:uuid;index" json:"category_id"`
	CategoryName  *string            `gorm:"type:varchar(100)" json:"category_name"`
	SKU           *string            `gorm:"column:sku;type:varchar(50);uniqueIndex" json:"sku"`
	StockQuantity int                `gorm:"not null;default:0" json:"stock_quantity"`
	IsAvailable   bool               `gorm:"not null;default:true;index" json:"is_available"`
	IsActive      bool               `gorm:"not null;default:true;index" json:"is_active"`
	ImageURLs     pq.StringArray     `gorm:"column:image_urls;type:text[];not null;default:'{}'" json:"image_urls"`
	Tags          pq.StringArray     `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	Weight        *float64           `gorm:"type:numeric(10,3)" json:"weight"`
	Dimensions    map[string]float64 `gorm:"type:jsonb;serializer:json" json:"dimensions"`
	CreatedAt     time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// StockMovement records one accepted stock adjustment.
type StockMovement struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID      string    `gorm:"type:uuid;not null;index" json:"product_id"`
	ChangeQuantity int       `gorm:"not null" json:"change_quantity"`
	PreviousStock  int       `gorm:"not null" json:"previous_stock"`
	NewStock       int       `gorm:"not null" json:"new_stock"`
	CreatedAt      time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

type CategoryCreateRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func NewCategory(req CategoryCreateRequest, now time.Time) *Category {
	return &Category{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CategoryPatch carries the category fields to change. Nil means untouched.
type CategoryPatch struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = p.Description
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
}

type ProductCreateRequest struct {
	Name          string             `json:"name" binding:"required,min=2,max=200"`
	Description   string             `json:"description" binding:"required,min=10,max=2000"`
	Price         float64            `json:"price" binding:"required,gt=0"`
	CategoryID    *string            `json:"category_id"`
	SKU           *string            `json:"sku" binding:"omitempty,max=50"`
	StockQuantity int                `json:"stock_quantity" binding:"gte=0"`
	IsAvailable   *bool              `json:"is_available"`
	ImageURLs     []string           `json:"image_urls"`
	Tags          []string           `json:"tags"`
	Weight        *float64           `json:"weight" binding:"omitempty,gt=0"`
	Dimensions    map[string]float64 `json:"dimensions"`
}

func NewProduct(req ProductCreateRequest, category *Category, now time.Time) *Product {
	p := &Product{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		SKU:           req.SKU,
		StockQuantity: req.StockQuantity,
		IsAvailable:   true,
		IsActive:      true,
		ImageURLs:     nonNil(req.ImageURLs),
		Tags:          nonNil(req.Tags),
		Weight:        req.Weight,
		Dimensions:    req.Dimensions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
	p.setCategory(category)
	return p
}

func (p *Product) setCategory(c *Category) {
	if c == nil {
		return
	}
	p.CategoryID = &c.ID
	p.CategoryName = &c.Name
}

// ProductPatch carries the product fields to change. Nil means untouched.
type ProductPatch struct {
	Name          *string            `json:"name" binding:"omitempty,min=2,max=200"`
	Description   *string            `json:"description" binding:"omitempty,min=10,max=2000"`
	Price         *float64           `json:"price" binding:"omitempty,gt=0"`
	CategoryID    *string            `json:"category_id"`
	SKU           *string            `json:"sku" binding:"omitempty,max=50"`
	StockQuantity *int               `json:"stock_quantity" binding:"omitempty,gte=0"`
	IsAvailable   *bool              `json:"is_available"`
	IsActive      *bool              `json:"is_active"`
	ImageURLs     []string           `json:"image_urls"`
	Tags          []string           `json:"tags"`
	Weight        *float64           `json:"weight" binding:"omitempty,gt=0"`
	Dimensions    map[string]float64 `json:"dimensions"`
}

// Apply copies the set fields onto p. The category is resolved by the caller
// and passed in so the denormalized name stays in step.
func (patch ProductPatch) Apply(p *Product, category *Category) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.SKU != nil {
		p.SKU = patch.SKU
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	if patch.IsAvailable != nil {
		p.IsAvailable = *patch.IsAvailable
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.ImageURLs != nil {
		p.ImageURLs = patch.ImageURLs
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.Weight != nil {
		p.Weight = patch.Weight
	}
	if patch.Dimensions != nil {
		p.Dimensions = patch.Dimensions
	}
	p.setCategory(category)
}

type StockUpdateRequest struct {
	QuantityChange *int `json:"quantity_change" binding:"required"`
}

// ProductList is one page of products.
type ProductList struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	TotalPages int       `json:"total_pages"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
