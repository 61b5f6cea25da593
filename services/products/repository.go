package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter selects active products. Zero values mean "any".
type ProductFilter struct {
	Query       string
	CategoryID  string
	MinPrice    *float64
	MaxPrice    *float64
	Tags        []string
	IsAvailable *bool
	Limit       int
	Offset      int
}

func (f ProductFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Where("is_active = ?", true)
	if f.Query != "" {
		pattern := "%" + escapeLike(f.Query) + "%"
		db = db.Where("(name ILIKE ? OR description ILIKE ? OR ? = ANY(tags))", pattern, pattern, f.Query)
	}
	if f.CategoryID != "" {
		db = db.Where("category_id = ?", f.CategoryID)
	}
	if f.MinPrice != nil {
		db = db.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		db = db.Where("price <= ?", *f.MaxPrice)
	}
	if len(f.Tags) > 0 {
		db = db.Where("tags && ?", pq.StringArray(f.Tags))
	}
	if f.IsAvailable != nil {
		db = db.Where("is_available = ?", *f.IsAvailable)
	}
	return db
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// Repository define a interface para operações de banco de dados do catálogo
type Repository interface {
	Migrate(ctx context.Context) error
	// Transaction runs fn against a repository bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	GetCategoryByName(ctx context.Context, name string) (*Category, error)
	ListCategories(ctx context.Context, offset, limit int, activeOnly bool) ([]Category, error)
	SaveCategory(ctx context.Context, category *Category) error

	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductForUpdate(ctx context.Context, id string) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	SaveProduct(ctx context.Context, product *Product) error
	CreateMovement(ctx context.Context, movement *StockMovement) error
}

// GormCatalogRepository implementa Repository usando GORM sobre PostgreSQL
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) Repository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&Category{}, &Product{}, &StockMovement{}); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

func (r *GormCatalogRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCatalogRepository{db: tx})
	})
}

func (r *GormCatalogRepository) CreateCategory(ctx context.Context, category *Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *GormCatalogRepository) GetCategory(ctx context.Context, id string) (*Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var category Category
	return first(r.db.WithContext(ctx).Where("id = ?", id), &category)
}

func (r *GormCatalogRepository) GetCategoryByName(ctx context.Context, name string) (*Category, error) {
	var category Category
	return first(r.db.WithContext(ctx).Where("name = ?", name), &category)
}

func (r *GormCatalogRepository) ListCategories(ctx context.Context, offset, limit int, activeOnly bool) ([]Category, error) {
	query := r.db.WithContext(ctx).Order("name ASC").Offset(offset).Limit(limit)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	categories := []Category{}
	if err := query.Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *GormCatalogRepository) SaveCategory(ctx context.Context, category *Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *GormCatalogRepository) CreateProduct(ctx context.Context, product *Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormCatalogRepository) GetProduct(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var product Product
	return first(r.db.WithContext(ctx).Where("id = ?", id), &product)
}

// GetProductForUpdate obtém o produto com lock pessimista (FOR UPDATE).
// Only meaningful inside Transaction.
func (r *GormCatalogRepository) GetProductForUpdate(ctx context.Context, id string) (*Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var product Product
	query := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return first(query, &product)
}

func (r *GormCatalogRepository) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var product Product
	return first(r.db.WithContext(ctx).Where("sku = ?", sku), &product)
}

func (r *GormCatalogRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error) {
	base := r.db.WithContext(ctx).Model(&Product{}).Scopes(filter.scope)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := []Product{}
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

func (r *GormCatalogRepository) SaveProduct(ctx context.Context, product *Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *GormCatalogRepository) CreateMovement(ctx context.Context, movement *StockMovement) error {
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return fmt.Errorf("failed to insert movement record: %w", err)
	}
	return nil
}

// first loads one row into dest, nil when nothing matches.
func first[T any](query *gorm.DB, dest *T) (*T, error) {
	err := query.Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dest, nil
}
