// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProductNotFound is returned when no active product has the requested id
var ErrProductNotFound = errors.New("product not found")

// DefaultFeaturedLimit is how many featured products a listing returns
const DefaultFeaturedLimit = 4

// Lookup is the read side of the catalog used by the cart and storefront
type Lookup interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetFeaturedProducts(ctx context.Context) ([]Summary, error)
}

// Service reads and writes products in the database
type Service struct {
	db            *gorm.DB
	featuredLimit int
}

// NewService creates a new catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:            db,
		featuredLimit: DefaultFeaturedLimit,
	}
}

// GetProduct retrieves a single active product by ID
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	result := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}

	return &product, nil
}

// GetFeaturedProducts lists active featured products, newest first
func (s *Service) GetFeaturedProducts(ctx context.Context) ([]Summary, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Where("is_featured = ? AND is_active = ?", true, true).
		Order("created_at DESC, id ASC").
		Limit(s.featuredLimit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve featured products: %w", err)
	}

	summaries := make([]Summary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// Upsert inserts products or updates them in place by ID
func (s *Service) Upsert(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "product_type", "price", "image_url", "is_featured", "in_stock", "is_active", "updated_at"}),
		}).
		Create(&products).Error
	if err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}
	return nil
}
