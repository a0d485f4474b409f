// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"gorm.io/gorm"

	"github.com/your-org/storefront/internal/pkg/money"
)

// Product is a sellable catalog entry
type Product struct {
	ID          string         `gorm:"primaryKey;size:64" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Category    string         `gorm:"size:100;index" json:"category"`
	ProductType string         `gorm:"size:100;index" json:"product_type"`
	Price       money.Money    `gorm:"not null" json:"price"`
	ImageURL    string         `gorm:"size:500" json:"image_url"`
	IsFeatured  bool           `gorm:"not null;index" json:"featured"`
	InStock     bool           `gorm:"not null" json:"in_stock"`
	IsActive    bool           `gorm:"not null" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name
func (Product) TableName() string { return "products" }

// Summary is the short form used in product listings
type Summary struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    money.Money `json:"price"`
	ImageURL string      `json:"image_url"`
	InStock  bool        `json:"in_stock"`
}

// Summary returns the listing form of p
func (p Product) Summary() Summary {
	return Summary{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		ImageURL: p.ImageURL,
		InStock:  p.InStock,
	}
}
