// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/money"
)

// Migration handles schema migrations and development seed data
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	models := append([]interface{}{&catalog.Product{}}, order.Models()...)

	for _, model := range models {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates composite indexes gorm tags cannot express.
// Failures are logged and counted, not returned.
func (m *Migration) CreateIndexes() (created, failed int) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_featured_active ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email)",

		"CREATE INDEX IF NOT EXISTS idx_payments_provider_reference ON payments(provider_reference)",
		"CREATE INDEX IF NOT EXISTS idx_payments_order_status ON payments(order_id, status)",

		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("failed to create index")
			failed++
		} else {
			created++
		}
	}

	m.logger.WithFields(logrus.Fields{"created": created, "failed": failed}).Info("database indexes ensured")
	return created, failed
}

// SeedCatalog inserts the starter catalog when the products table is empty
func (m *Migration) SeedCatalog(ctx context.Context) error {
	var count int64
	if err := m.db.WithContext(ctx).Model(&catalog.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		m.logger.WithField("products", count).Debug("catalog already seeded")
		return nil
	}

	if err := catalog.NewService(m.db).Upsert(ctx, starterCatalog()); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	m.logger.WithField("products", len(starterCatalog())).Info("catalog seeded")
	return nil
}

func starterCatalog() []catalog.Product {
	const pexels = "https://images.pexels.com/photos/%s/pexels-photo-%s.jpeg?auto=compress&cs=tinysrgb&h=750&w=1260"
	image := func(id string) string { return fmt.Sprintf(pexels, id, id) }

	return []catalog.Product{
		{ID: "classic-cotton-hoodie", Name: "Classic Cotton Hoodie", Category: "Men", ProductType: "hoodies", Price: money.MustParse("120.00"), ImageURL: image("1183266"), IsFeatured: true, InStock: true, IsActive: true},
		{ID: "slim-fit-leggings", Name: "Slim Fit Leggings", Category: "Women", ProductType: "bottoms", Price: money.MustParse("90.00"), ImageURL: image("7998296"), IsFeatured: true, InStock: true, IsActive: true},
		{ID: "designer-vest", Name: "Designer Vest", Category: "Men", ProductType: "tops", Price: money.MustParse("150.00"), ImageURL: image("1589818"), IsFeatured: true, InStock: true, IsActive: true},
		{ID: "modern-track-jacket", Name: "Modern Track Jacket", Category: "Women", ProductType: "jackets", Price: money.MustParse("135.00"), ImageURL: image("4380970"), IsFeatured: true, InStock: true, IsActive: true},
		{ID: "elegant-leather-gloves", Name: "Elegant Leather Gloves", Category: "Accessories", ProductType: "gloves", Price: money.MustParse("45.00"), ImageURL: image("46239"), InStock: true, IsActive: true},
		{ID: "basic-signature-tshirt", Name: "Basic Signature T-shirt", Category: "Men", ProductType: "tops", Price: money.MustParse("75.00"), ImageURL: image("2385477"), InStock: true, IsActive: true},
	}
}
